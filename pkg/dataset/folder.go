package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MaterialFolder is one independently labeled source directory:
//
//	<material>/images/       image files
//	<material>/labels/       YOLO .txt label files (same basename as the image)
//	<material>/classes.txt   local class list (local index = line number)
type MaterialFolder struct {
	Name string
	Path string
}

func (m MaterialFolder) ImagesDir() string {
	return filepath.Join(m.Path, "images")
}

func (m MaterialFolder) LabelsDir() string {
	return filepath.Join(m.Path, "labels")
}

func (m MaterialFolder) ClassFile() string {
	return filepath.Join(m.Path, "classes.txt")
}

// ListMaterialFolders returns the immediate subdirectories of baseDir, in lexical order
func ListMaterialFolders(baseDir string) ([]MaterialFolder, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("Failed to read base directory %v: %w", baseDir, err)
	}
	folders := []MaterialFolder{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		folders = append(folders, MaterialFolder{
			Name: e.Name(),
			Path: filepath.Join(baseDir, e.Name()),
		})
	}
	sort.Slice(folders, func(i, j int) bool {
		return folders[i].Name < folders[j].Name
	})
	return folders, nil
}

// listImageBasenames returns the sorted, de-duplicated basenames of all recognized images in dir.
// The second result holds the basenames that had more than one image file (eg a.jpg and a.png).
func (c *Config) listImageBasenames(dir string) ([]string, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	seen := map[string]bool{}
	dupSeen := map[string]bool{}
	names := []string{}
	dups := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !c.isImageExtension(ext) {
			continue
		}
		base := strings.TrimSuffix(e.Name(), ext)
		if seen[base] {
			if !dupSeen[base] {
				dupSeen[base] = true
				dups = append(dups, base)
			}
			continue
		}
		seen[base] = true
		names = append(names, base)
	}
	sort.Strings(names)
	sort.Strings(dups)
	return names, dups, nil
}

// findImage tries each extension in order (first as configured, then upper case),
// and returns the file name of the first image that exists.
func (c *Config) findImage(dir, base string) (string, bool) {
	for _, ext := range c.Extensions {
		for _, variant := range []string{ext, strings.ToUpper(ext)} {
			name := base + variant
			st, err := os.Stat(filepath.Join(dir, name))
			if err == nil && st.Mode().IsRegular() {
				return name, true
			}
		}
	}
	// Mixed case, such as ".Jpg"
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && c.isImageExtension(ext) && strings.TrimSuffix(e.Name(), ext) == base {
			return e.Name(), true
		}
	}
	return "", false
}
