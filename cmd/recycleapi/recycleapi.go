package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/akamensky/argparse"
	"github.com/coreos/go-systemd/daemon"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/recycle/pkg/detect"
	"github.com/cyclopcam/recycle/pkg/nn"
	"github.com/cyclopcam/recycle/pkg/weight"
	"github.com/cyclopcam/recycle/server"
)

func main() {
	parser := argparse.NewParser("recycleapi", "Recycling sorter inference API")
	configFile := parser.String("c", "config", &argparse.Options{Help: "JSON configuration file", Default: ""})
	listen := parser.String("l", "listen", &argparse.Options{Help: "Listen address (overrides config)", Default: ""})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg := server.DefaultConfig()
	if *configFile != "" {
		cfg, err = server.LoadConfig(*configFile)
		if err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	weights, err := weight.LoadTableOrDefault(cfg.WeightsFile)
	if err != nil {
		logger.Errorf("Failed to load weight table: %v", err)
		os.Exit(1)
	}
	logger.Infof("Weight table has %v materials", weights.Len())

	// The API still starts if the detector is unreachable, and reports model_loaded: false
	var detector nn.ObjectDetector
	if cfg.Detector.URL == "" {
		logger.Warnf("No detector URL configured")
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		remote, err := detect.NewRemoteDetector(ctx, logger, cfg.Detector.URL, cfg.Detector.ModelConfig)
		cancel()
		if err != nil {
			logger.Errorf("Error loading model: %v", err)
		} else {
			detector = remote
		}
	}

	srv, err := server.NewServer(logger, cfg, detector, weights)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	srv.ListenForKillSignals()

	// Tell systemd that we're alive
	daemon.SdNotify(false, daemon.SdNotifyReady)

	if err := srv.ListenHTTP(""); err != nil {
		logger.Errorf("%v", err)
		srv.Shutdown()
		os.Exit(1)
	}
	logger.Infof("Exiting")
}
