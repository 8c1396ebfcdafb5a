// Package weight estimates the mass of detected waste items from a per-class average weight table
package weight

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed default_weights.yaml
var defaultWeightsYAML []byte

// Table maps a class name to the average weight of one item, in grams.
// A Table is immutable once built, so it can be shared between goroutines.
type Table struct {
	grams map[string]int
}

// ParseTable parses a YAML mapping of class name to grams
func ParseTable(b []byte) (*Table, error) {
	raw := map[string]int{}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("Invalid weight table: %w", err)
	}
	for name, g := range raw {
		if g < 0 {
			return nil, fmt.Errorf("Invalid weight table: '%v' has negative weight %v", name, g)
		}
	}
	return &Table{grams: raw}, nil
}

func LoadTable(filename string) (*Table, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	t, err := ParseTable(b)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	return t, nil
}

// DefaultTable returns the built-in average weights
func DefaultTable() *Table {
	t, err := ParseTable(defaultWeightsYAML)
	if err != nil {
		panic(err)
	}
	return t
}

// LoadTableOrDefault loads filename, or returns the default table if filename is empty
func LoadTableOrDefault(filename string) (*Table, error) {
	if filename == "" {
		return DefaultTable(), nil
	}
	return LoadTable(filename)
}

// Lookup returns the average weight of one item of the class
func (t *Table) Lookup(name string) (int, bool) {
	g, ok := t.grams[name]
	return g, ok
}

func (t *Table) Len() int {
	return len(t.grams)
}

// Names returns the class names in the table, sorted
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.grams))
	for n := range t.grams {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
