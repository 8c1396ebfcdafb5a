// Package nn holds the object detection types shared by the dataset tools,
// the weight estimator, and the inference API.
// The detection engine itself is external. See the detect package for a client.
package nn

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
)

// ErrNoClasses is returned by LoadModelConfig when the config names no classes
var ErrNoClasses = errors.New("Model config has no classes")

// Results of an NN object detection run
type DetectionResult struct {
	ImageWidth  int               `json:"imageWidth"`
	ImageHeight int               `json:"imageHeight"`
	Objects     []ObjectDetection `json:"objects"`
}

// ObjectDetector is given an encoded image (jpeg, png, etc), and returns zero or more detected objects
type ObjectDetector interface {
	// Close releases any resources held by the detector
	Close()

	// DetectObjects returns the objects detected in the image.
	// Object classes are indices into Config().Classes.
	DetectObjects(ctx context.Context, image []byte) (*DetectionResult, error)

	// Model Config.
	// Callers assume that ModelConfig will remain constant, so don't change it
	// once the detector has been created.
	Config() *ModelConfig
}

// ModelConfig is saved in a JSON file along with the weights of the NN model
type ModelConfig struct {
	Architecture string   `json:"architecture"` // eg "yolov8"
	Width        int      `json:"width"`        // eg 640
	Height       int      `json:"height"`       // eg 640
	Classes      []string `json:"classes"`      // eg ["cardboard_bags", "cardboard_boxes", ...]
}

// Load model config from a JSON file
func LoadModelConfig(filename string) (*ModelConfig, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	config := &ModelConfig{}
	err = json.Unmarshal(b, config)
	if err != nil {
		return nil, err
	}
	if len(config.Classes) == 0 {
		return nil, ErrNoClasses
	}
	return config, nil
}

// Load a text file with class names on each line.
// Names are trimmed, and blank lines are ignored, so the local index of a class is
// its position among the non-blank lines.
func LoadClassFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	classes := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			classes = append(classes, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return classes, nil
}

// ClassName returns the name of class 'id', or "" if it's out of range
func (c *ModelConfig) ClassName(id int) string {
	if id < 0 || id >= len(c.Classes) {
		return ""
	}
	return c.Classes[id]
}
