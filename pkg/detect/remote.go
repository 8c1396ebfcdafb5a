// Package detect talks to an external object detection service
package detect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/recycle/pkg/nn"
	"github.com/cyclopcam/www"
)

var ErrClassOutOfRange = errors.New("Detector returned a class that is not in the model config")

// RemoteDetector sends images to an HTTP inference endpoint.
//
//	POST <url>          body: encoded image, response: nn.DetectionResult JSON
//	GET  <url>/config   response: nn.ModelConfig JSON
type RemoteDetector struct {
	log    logs.Log
	url    string
	config *nn.ModelConfig
}

// NewRemoteDetector creates a detector for 'url'.
// If modelConfigFile is empty, the model config is fetched from the endpoint.
func NewRemoteDetector(ctx context.Context, log logs.Log, url, modelConfigFile string) (*RemoteDetector, error) {
	url = strings.TrimSuffix(url, "/")
	var cfg *nn.ModelConfig
	var err error
	if modelConfigFile != "" {
		cfg, err = nn.LoadModelConfig(modelConfigFile)
	} else {
		cfg, err = fetchModelConfig(ctx, url)
	}
	if err != nil {
		return nil, fmt.Errorf("Failed to load model config: %w", err)
	}
	log.Infof("Remote detector %v: %v classes", url, len(cfg.Classes))
	return &RemoteDetector{
		log:    log,
		url:    url,
		config: cfg,
	}, nil
}

func fetchModelConfig(ctx context.Context, url string) (*nn.ModelConfig, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url+"/config", nil)
	if err != nil {
		return nil, err
	}
	cfg := &nn.ModelConfig{}
	if err := www.FetchJSON(req, cfg); err != nil {
		return nil, err
	}
	if len(cfg.Classes) == 0 {
		return nil, nn.ErrNoClasses
	}
	return cfg, nil
}

func (d *RemoteDetector) Close() {
}

func (d *RemoteDetector) Config() *nn.ModelConfig {
	return d.config
}

func (d *RemoteDetector) DetectObjects(ctx context.Context, image []byte) (*nn.DetectionResult, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", d.url, bytes.NewReader(image))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	result := &nn.DetectionResult{}
	if err := www.FetchJSON(req, result); err != nil {
		return nil, err
	}
	for _, obj := range result.Objects {
		if obj.Class < 0 || obj.Class >= len(d.config.Classes) {
			return nil, fmt.Errorf("%w: %v", ErrClassOutOfRange, obj.Class)
		}
	}
	return result, nil
}
