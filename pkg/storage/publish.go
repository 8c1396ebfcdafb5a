package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/recycle/pkg/dataset"
)

// PublishReport summarizes an upload of a split dataset
type PublishReport struct {
	Files       int
	Bytes       int64
	ManifestKey string
	ManifestURL string // Empty if the store has no public URLs
}

// Publish uploads a split dataset directory to a blob store, under 'prefix'.
// The manifest is uploaded last, so a store without the manifest holds an incomplete dataset,
// just like a local directory without one.
func Publish(log logs.Log, store Storage, splitDir, prefix string) (*PublishReport, error) {
	manifestFile := filepath.Join(splitDir, dataset.ManifestFilename)
	manifest, err := dataset.LoadManifest(manifestFile)
	if err != nil {
		return nil, fmt.Errorf("%v is not a complete split dataset: %w", splitDir, err)
	}
	log.Infof("Publishing %v (%v classes) to '%v'", splitDir, manifest.NC, prefix)

	prefix = strings.Trim(prefix, "/")
	key := func(rel string) string {
		rel = filepath.ToSlash(rel)
		if prefix == "" {
			return rel
		}
		return path.Join(prefix, rel)
	}

	report := &PublishReport{}
	err = filepath.WalkDir(splitDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(splitDir, p)
		if err != nil {
			return err
		}
		if rel == dataset.ManifestFilename {
			return nil
		}
		n, err := uploadFile(store, p, key(rel))
		if err != nil {
			return fmt.Errorf("Failed to upload %v: %w", rel, err)
		}
		report.Files++
		report.Bytes += n
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.ManifestKey = key(dataset.ManifestFilename)
	n, err := uploadFile(store, manifestFile, report.ManifestKey)
	if err != nil {
		return nil, fmt.Errorf("Failed to upload manifest: %w", err)
	}
	report.Files++
	report.Bytes += n
	if url, err := store.URL(report.ManifestKey); err == nil {
		report.ManifestURL = url
	}
	log.Infof("Published %v files (%v bytes)", report.Files, report.Bytes)
	return report, nil
}

func uploadFile(store Storage, filename, key string) (int64, error) {
	f, err := os.Open(filename)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if err := WriteFile(store, key, f); err != nil {
		return 0, err
	}
	return st.Size(), nil
}
