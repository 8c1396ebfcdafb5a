package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyclopcam/logs"
)

// FolderReport is the outcome of one material folder
type FolderReport struct {
	Name    string
	Skipped bool // Folder was skipped entirely (no class list, no images dir, or no images)
	Counts  map[Split]SplitCounts
}

// Report summarizes a run
type Report struct {
	Names    []string // Global class list, as written to the manifest
	Folders  []FolderReport
	Totals   map[Split]int // Number of images successfully materialized per split
	Warnings []string
}

// Unifier merges independently labeled material folders into one split dataset.
// A Unifier is used for a single run.
type Unifier struct {
	Log    logs.Log
	Config Config

	report  *Report
	written map[string]string // basename -> material folder that produced it
}

func NewUnifier(log logs.Log, cfg Config) *Unifier {
	return &Unifier{
		Log:    log,
		Config: cfg,
		report: &Report{
			Totals: map[Split]int{},
		},
		written: map[string]string{},
	}
}

func (u *Unifier) warnf(format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	u.report.Warnings = append(u.report.Warnings, msg)
	if u.Log != nil {
		u.Log.Warnf("%v", msg)
	}
}

func (u *Unifier) infof(format string, a ...interface{}) {
	if u.Log != nil {
		u.Log.Infof(format, a...)
	}
}

// Run unifies the material folders under baseDir into outDir.
// Configuration errors are returned before anything is written. After that, problems with
// individual folders and files are warnings, and are listed in the report.
// The manifest is written last.
func Run(log logs.Log, baseDir, outDir string, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewUnifier(log, cfg).Run(baseDir, outDir)
}

func (u *Unifier) Run(baseDir, outDir string) (*Report, error) {
	if err := u.Config.Validate(); err != nil {
		return nil, err
	}

	folders, err := ListMaterialFolders(baseDir)
	if err != nil {
		return nil, err
	}

	reg, err := u.BuildRegistry(folders)
	if err != nil {
		return nil, err
	}
	u.report.Names = reg.Names()
	u.infof("Global class list (%v): %v", reg.Len(), u.report.Names)

	// Strict mode must fail before any output exists
	if u.Config.StrictClasses {
		for _, folder := range folders {
			if _, err := u.BuildIndexMap(folder, reg); errors.Is(err, ErrStrictClass) {
				return nil, err
			}
		}
	}

	if err := u.prepareOutput(outDir); err != nil {
		return nil, err
	}

	dirs, err := createOutputLayout(outDir)
	if err != nil {
		return nil, err
	}

	for _, folder := range folders {
		u.report.Folders = append(u.report.Folders, u.processFolder(folder, reg, dirs))
	}

	manifest := NewManifest(reg.Names())
	if err := WriteManifest(filepath.Join(outDir, ManifestFilename), manifest); err != nil {
		return nil, fmt.Errorf("Failed to write manifest: %w", err)
	}

	u.infof("Dataset written to %v. train: %v, val: %v, test: %v",
		outDir, u.report.Totals[SplitTrain], u.report.Totals[SplitVal], u.report.Totals[SplitTest])
	return u.report, nil
}

func (u *Unifier) processFolder(folder MaterialFolder, reg *Registry, dirs map[Split]SplitDirs) FolderReport {
	fr := FolderReport{
		Name:   folder.Name,
		Counts: map[Split]SplitCounts{},
	}

	indexMap, err := u.BuildIndexMap(folder, reg)
	if err != nil {
		u.warnf("Skipping %v: %v", folder.Name, err)
		fr.Skipped = true
		return fr
	}
	if indexMap == nil {
		u.warnf("Skipping %v: no classes.txt", folder.Name)
		fr.Skipped = true
		return fr
	}

	imagesDir := folder.ImagesDir()
	if st, err := os.Stat(imagesDir); err != nil || !st.IsDir() {
		u.warnf("Skipping %v: no images directory", folder.Name)
		fr.Skipped = true
		return fr
	}

	basenames, dups, err := u.Config.listImageBasenames(imagesDir)
	if err != nil {
		u.warnf("Skipping %v: %v", folder.Name, err)
		fr.Skipped = true
		return fr
	}
	for _, d := range dups {
		u.warnf("%v has more than one image named %v. Only one will be used", folder.Name, d)
	}
	if len(basenames) == 0 {
		u.warnf("Skipping %v: no images", folder.Name)
		fr.Skipped = true
		return fr
	}

	part := u.Config.Split(basenames)
	u.infof("%v: %v images. train: %v, val: %v, test: %v", folder.Name, len(basenames), len(part.Train), len(part.Val), len(part.Test))

	for _, s := range AllSplits {
		counts := u.Materialize(folder, indexMap, part.Get(s), dirs[s])
		fr.Counts[s] = counts
		u.report.Totals[s] += counts.Processed
	}
	return fr
}

// prepareOutput makes sure that outDir holds nothing from an earlier run.
// Stale files would otherwise land one basename in two splits. The manifest is removed first,
// so an interrupted overwrite is never mistaken for a complete dataset.
func (u *Unifier) prepareOutput(outDir string) error {
	manifest := filepath.Join(outDir, ManifestFilename)
	existing := []string{}
	if _, err := os.Lstat(manifest); err == nil {
		existing = append(existing, manifest)
	}
	for _, s := range AllSplits {
		dir := filepath.Join(outDir, s.String())
		if _, err := os.Lstat(dir); err == nil {
			existing = append(existing, dir)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if !u.Config.Overwrite {
		return fmt.Errorf("%w: %v", ErrOutputExists, outDir)
	}
	for _, p := range existing {
		u.infof("Removing %v", p)
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("Failed to remove earlier output %v: %w", p, err)
		}
	}
	return nil
}
