package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/recycle/pkg/detect"
	"github.com/cyclopcam/recycle/pkg/imgio"
	"github.com/cyclopcam/recycle/pkg/weight"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	logger, err := logs.NewLog()
	check(err)

	parser := argparse.NewParser("estimateweight", "Detect recyclables in an image, and estimate their total weight")
	input := parser.String("i", "input", &argparse.Options{Help: "Input image", Required: true})
	detectorURL := parser.String("", "detector", &argparse.Options{Help: "URL of the object detection service", Required: true})
	modelConfig := parser.String("", "model", &argparse.Options{Help: "Model config JSON. Default is to fetch it from the detector", Default: ""})
	weightsFile := parser.String("", "weights", &argparse.Options{Help: "YAML weight table. Default is the built-in table", Default: ""})
	output := parser.String("o", "output", &argparse.Options{Help: "Write annotated image here", Default: ""})
	asJSON := parser.Flag("", "json", &argparse.Options{Help: "Print the result as JSON", Default: false})
	err = parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	weights, err := weight.LoadTableOrDefault(*weightsFile)
	if err != nil {
		logger.Errorf("Failed to load weight table: %v", err)
		os.Exit(1)
	}

	raw, err := os.ReadFile(*input)
	check(err)
	img, err := imgio.DecodeBytes(raw)
	if err != nil {
		logger.Errorf("Could not decode %v: %v", *input, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	detector, err := detect.NewRemoteDetector(ctx, logger, *detectorURL, *modelConfig)
	if err != nil {
		logger.Errorf("Failed to connect to detector: %v", err)
		os.Exit(1)
	}
	defer detector.Close()

	result, err := detector.DetectObjects(ctx, raw)
	if err != nil {
		logger.Errorf("Detection failed: %v", err)
		os.Exit(1)
	}
	est := weights.Estimate(result, detector.Config().Classes)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		check(enc.Encode(est))
	} else {
		est.WriteReport(os.Stdout)
	}

	if *output != "" {
		check(imgio.SaveImage(*output, weight.AnnotateDetections(img, est)))
		logger.Infof("Annotated image saved to %v", *output)
	}
}
