package server

import (
	"encoding/json"
	"fmt"
	"os"
)

type Config struct {
	Listen        string          `json:"listen"`        // eg ":8000"
	Detector      DetectorConfig  `json:"detector"`      // External object detection service
	WeightsFile   string          `json:"weightsFile"`   // YAML weight table. Empty means the built-in table.
	DB            string          `json:"db"`            // Path to sqlite detection history. Empty disables history.
	RateLimit     RateLimitConfig `json:"rateLimit"`     // Per client IP, on the detection routes
	MaxImageBytes int64           `json:"maxImageBytes"` // Maximum upload size
}

type DetectorConfig struct {
	URL         string `json:"url"`         // POST endpoint of the detection service
	ModelConfig string `json:"modelConfig"` // Path to the model's JSON config. Empty means fetch it from <url>/config.
}

type RateLimitConfig struct {
	Requests      int `json:"requests"`
	WindowSeconds int `json:"windowSeconds"`
}

func DefaultConfig() Config {
	return Config{
		Listen: ":8000",
		RateLimit: RateLimitConfig{
			Requests:      30,
			WindowSeconds: 60,
		},
		MaxImageBytes: 20 * 1024 * 1024,
	}
}

// LoadConfig reads a JSON config file. Missing fields keep their default values.
func LoadConfig(filename string) (Config, error) {
	cfg := DefaultConfig()
	cfgB, err := os.ReadFile(filename)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(cfgB, &cfg); err != nil {
		return cfg, fmt.Errorf("Error parsing config file %v: %w", filename, err)
	}
	if cfg.RateLimit.Requests <= 0 || cfg.RateLimit.WindowSeconds <= 0 {
		return cfg, fmt.Errorf("Invalid rate limit in %v: requests and windowSeconds must be positive", filename)
	}
	if cfg.MaxImageBytes <= 0 {
		return cfg, fmt.Errorf("Invalid maxImageBytes in %v", filename)
	}
	return cfg, nil
}
