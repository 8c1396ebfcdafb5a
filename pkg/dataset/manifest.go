package dataset

import (
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// ManifestFilename is written at the root of the split directory, after everything else.
// Its absence signals an incomplete run.
const ManifestFilename = "data.yaml"

// Manifest is the contract consumed by the detection trainer.
// Field order here is the key order in the file.
type Manifest struct {
	Train string   `yaml:"train"`
	Val   string   `yaml:"val"`
	Test  string   `yaml:"test"`
	NC    int      `yaml:"nc"`
	Names []string `yaml:"names"`
}

// NewManifest creates a manifest with the standard relative split paths
func NewManifest(names []string) *Manifest {
	return &Manifest{
		Train: path.Join(SplitTrain.String(), "images"),
		Val:   path.Join(SplitVal.String(), "images"),
		Test:  path.Join(SplitTest.String(), "images"),
		NC:    len(names),
		Names: append([]string{}, names...),
	}
}

// ImagesPath returns the relative images path of a split
func (m *Manifest) ImagesPath(s Split) string {
	switch s {
	case SplitTrain:
		return m.Train
	case SplitVal:
		return m.Val
	case SplitTest:
		return m.Test
	}
	panic("Unknown split")
}

func WriteManifest(filename string, m *Manifest) error {
	b, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, b, 0644)
}

func LoadManifest(filename string) (*Manifest, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	m := &Manifest{}
	if err := yaml.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("Error parsing manifest %v: %w", filename, err)
	}
	if m.NC != len(m.Names) {
		return nil, fmt.Errorf("Manifest %v is inconsistent: nc is %v, but %v names are listed", filename, m.NC, len(m.Names))
	}
	return m, nil
}
