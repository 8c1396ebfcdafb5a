package dataset

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Configuration errors. These abort a run before any output is written.
var (
	ErrRatioSum     = errors.New("Split ratios must sum to 1.0")
	ErrInvalidRatio = errors.New("Split ratios must be between 0 and 1")
	ErrNoExtensions = errors.New("No image extensions configured")
	ErrNoClasses    = errors.New("No classes defined (no classes.txt found in any material folder)")
	ErrStrictClass  = errors.New("Local class is missing from the global class list")
	ErrOutputExists = errors.New("Output directory already holds a dataset")
)

// DefaultImageExtensions are tried in this order when locating an image for a basename
var DefaultImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"}

// Config controls a split run
type Config struct {
	TrainRatio float64
	ValRatio   float64
	TestRatio  float64
	Seed       int64    // Fixed seed, so that splits are reproducible
	Extensions []string // Recognized image extensions, lower case, with the leading dot

	// If not empty, this is the global class list, instead of the first-seen union of
	// every folder's classes.txt. Local classes that are not in this list are unmappable.
	Classes []string

	// If true, an unmappable local class aborts the run before any output is created.
	// If false (the default), the class is skipped with a warning, and label lines that
	// use it are dropped.
	StrictClasses bool

	// If true, the manifest and split directories of an earlier run in the output directory are
	// removed before writing. If false, existing output is ErrOutputExists.
	Overwrite bool
}

func DefaultConfig() Config {
	return Config{
		TrainRatio: 0.75,
		ValRatio:   0.15,
		TestRatio:  0.10,
		Seed:       42,
		Extensions: append([]string{}, DefaultImageExtensions...),
	}
}

// Validate checks the ratios and extensions.
// The sum check rounds to 5 decimal places, so 0.7+0.2+0.1 is accepted.
func (c *Config) Validate() error {
	for _, r := range []float64{c.TrainRatio, c.ValRatio, c.TestRatio} {
		if math.IsNaN(r) || r < 0 || r > 1 {
			return fmt.Errorf("%w (got %v / %v / %v)", ErrInvalidRatio, c.TrainRatio, c.ValRatio, c.TestRatio)
		}
	}
	sum := c.TrainRatio + c.ValRatio + c.TestRatio
	if math.Round(sum*1e5)/1e5 != 1.0 {
		return fmt.Errorf("%w. Current sum is %v", ErrRatioSum, sum)
	}
	if len(c.Extensions) == 0 {
		return ErrNoExtensions
	}
	return nil
}

// isImageExtension returns true if ext (with leading dot) is one of our recognized extensions, ignoring case
func (c *Config) isImageExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range c.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
