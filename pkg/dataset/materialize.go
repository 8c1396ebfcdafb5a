package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cyclopcam/recycle/pkg/nn"
)

// SplitDirs are the destination directories of one split
type SplitDirs struct {
	Images string
	Labels string
}

// OutputLayout returns the directories of each split under root
func OutputLayout(root string) map[Split]SplitDirs {
	dirs := map[Split]SplitDirs{}
	for _, s := range AllSplits {
		dirs[s] = SplitDirs{
			Images: filepath.Join(root, s.String(), "images"),
			Labels: filepath.Join(root, s.String(), "labels"),
		}
	}
	return dirs
}

func createOutputLayout(root string) (map[Split]SplitDirs, error) {
	dirs := OutputLayout(root)
	for _, s := range AllSplits {
		for _, d := range []string{dirs[s].Images, dirs[s].Labels} {
			if err := os.MkdirAll(d, 0755); err != nil {
				return nil, fmt.Errorf("Failed to create output directory %v: %w", d, err)
			}
		}
	}
	return dirs, nil
}

// SplitCounts is the outcome of materializing one split of one folder
type SplitCounts struct {
	Processed int // Image copied and label written
	Skipped   int // Missing image, name collision, or I/O error
}

// Materialize copies the images of 'basenames' into dst.Images, and writes their
// remapped labels into dst.Labels.
// Every problem is a warning, and processing continues with the next basename.
func (u *Unifier) Materialize(folder MaterialFolder, indexMap IndexMap, basenames []string, dst SplitDirs) SplitCounts {
	counts := SplitCounts{}
	srcImages := folder.ImagesDir()
	srcLabels := folder.LabelsDir()

	for _, base := range basenames {
		imageName, found := u.Config.findImage(srcImages, base)
		if !found {
			u.warnf("Could not find image file for %v in %v", base, folder.Name)
			counts.Skipped++
			continue
		}

		// Two material folders can use the same basename. Don't let the second silently
		// overwrite the first, or land the same name in two splits.
		if owner, taken := u.written[base]; taken {
			u.warnf("Skipping %v/%v: basename already taken by %v", folder.Name, base, owner)
			counts.Skipped++
			continue
		}

		srcImage := filepath.Join(srcImages, imageName)
		if err := copyFilePreserve(srcImage, filepath.Join(dst.Images, imageName)); err != nil {
			u.warnf("Error copying image %v: %v", srcImage, err)
			counts.Skipped++
			continue
		}
		u.written[base] = folder.Name

		srcLabel := filepath.Join(srcLabels, base+".txt")
		dstLabel := filepath.Join(dst.Labels, base+".txt")
		if err := u.remapLabel(srcLabel, dstLabel, indexMap); err != nil {
			// An image without a label would be trained on as a negative sample
			u.warnf("Error processing label %v: %v", srcLabel, err)
			if err := os.Remove(filepath.Join(dst.Images, imageName)); err != nil {
				u.warnf("Error removing unlabeled image %v: %v", imageName, err)
			}
			delete(u.written, base)
			counts.Skipped++
			continue
		}
		counts.Processed++
	}
	return counts
}

// remapLabel rewrites the class indices of src into dst.
// If src does not exist, dst is created empty (a negative sample).
func (u *Unifier) remapLabel(src, dst string, indexMap IndexMap) error {
	records, bad, err := nn.ReadLabelFile(src)
	if errors.Is(err, os.ErrNotExist) {
		return nn.WriteLabelFile(dst, nil)
	} else if err != nil {
		return err
	}
	for _, b := range bad {
		u.warnf("Malformed label in %v: %v", src, b.Error())
	}
	out := make([]nn.LabelRecord, 0, len(records))
	for _, rec := range records {
		globalIdx, ok := indexMap[rec.Class]
		if !ok {
			u.warnf("Invalid class index %v in %v", rec.Class, src)
			continue
		}
		out = append(out, rec.WithClass(globalIdx))
	}
	return nn.WriteLabelFile(dst, out)
}

// copyFilePreserve copies src to dst, and carries over the file mode and modification time
func copyFilePreserve(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	st, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, st.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Chmod(dst, st.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, st.ModTime(), st.ModTime())
}
