package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/recycle/pkg/dataset"
	"github.com/cyclopcam/recycle/pkg/labelstats"
	"github.com/cyclopcam/recycle/pkg/nn"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	logger, err := logs.NewLog()
	check(err)

	parser := argparse.NewParser("labelstats", "Count bounding boxes per class in a YOLO label directory")
	imageDir := parser.String("", "images", &argparse.Options{Help: "Image directory", Required: true})
	labelDir := parser.String("", "labels", &argparse.Options{Help: "Label directory", Required: true})
	classFile := parser.String("", "classes", &argparse.Options{Help: "Class list, one name per line", Default: ""})
	manifestFile := parser.String("", "manifest", &argparse.Options{Help: "Dataset manifest (data.yaml), instead of --classes", Default: ""})
	chartFile := parser.String("", "chart", &argparse.Options{Help: "Write a bar chart PNG here", Default: ""})
	chartWidth := parser.Int("", "width", &argparse.Options{Help: "Chart width", Default: 1200})
	chartHeight := parser.Int("", "height", &argparse.Options{Help: "Chart height", Default: 800})
	err = parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	var names []string
	switch {
	case *classFile != "" && *manifestFile != "":
		logger.Errorf("Specify only one of --classes and --manifest")
		os.Exit(1)
	case *classFile != "":
		names, err = nn.LoadClassFile(*classFile)
		check(err)
	case *manifestFile != "":
		m, err := dataset.LoadManifest(*manifestFile)
		check(err)
		names = m.Names
	}

	stats, err := labelstats.Count(logger, *labelDir, *imageDir, dataset.DefaultImageExtensions)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	stats.WriteTable(os.Stdout, names)

	if *chartFile != "" {
		if stats.TotalBoxes == 0 {
			logger.Warnf("No boxes found. Not writing chart")
			return
		}
		check(stats.SaveChart(*chartFile, names, *chartWidth, *chartHeight))
		logger.Infof("Chart saved to %v", *chartFile)
	}
}
