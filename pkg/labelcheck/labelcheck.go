package labelcheck

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	flatbush "github.com/bmharper/flatbush-go"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/recycle/pkg/imgio"
	"github.com/cyclopcam/recycle/pkg/nn"
)

// IssueKind classifies a problem found in a label file
type IssueKind string

const (
	IssueMissingLabel IssueKind = "missing_label"
	IssueMalformed    IssueKind = "malformed"
	IssueInvalidClass IssueKind = "invalid_class"
	IssueOutOfBounds  IssueKind = "out_of_bounds"
	IssueDuplicate    IssueKind = "duplicate"
)

type Issue struct {
	Image  string    // Basename of the image
	Line   int       // 1-based line in the label file, or 0 if the issue is about the whole file
	Kind   IssueKind
	Detail string
}

func (i Issue) String() string {
	if i.Line == 0 {
		return fmt.Sprintf("%v: %v %v", i.Image, i.Kind, i.Detail)
	}
	return fmt.Sprintf("%v:%v: %v %v", i.Image, i.Line, i.Kind, i.Detail)
}

type Options struct {
	Samples      int     // Number of images to annotate. 0 means none.
	Seed         int64   // Seed for choosing the samples
	OutDir       string  // Where annotated samples are written. Empty means don't write.
	DuplicateIoU float32 // Two boxes of the same class with at least this IoU are duplicates
	Extensions   []string
}

func DefaultOptions() Options {
	return Options{
		Samples:      10,
		Seed:         42,
		DuplicateIoU: 0.9,
		Extensions:   []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"},
	}
}

type Result struct {
	Split     string
	Images    int      // Total images in the split
	Sampled   []string // Image file names chosen for annotation
	Annotated []string // Paths of annotated images that were written
	Issues    []Issue
}

// Count returns the number of issues of the given kind
func (r *Result) Count(kind IssueKind) int {
	n := 0
	for _, i := range r.Issues {
		if i.Kind == kind {
			n++
		}
	}
	return n
}

// Normalized coordinates are scaled up to this before spatial indexing.
// IoU is invariant under axis scaling, so the image size isn't needed.
const indexScale = 100000

// CheckSplit inspects every label in <splitDir>/<split>, and annotates a random sample of images
func CheckSplit(log logs.Log, splitDir, split string, names []string, opts Options) (*Result, error) {
	imagesDir := filepath.Join(splitDir, split, "images")
	labelsDir := filepath.Join(splitDir, split, "labels")
	images, err := listImages(imagesDir, opts.Extensions)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("No images found in %v", imagesDir)
	}

	res := &Result{
		Split:  split,
		Images: len(images),
	}
	labels := map[string][]nn.LabelRecord{}
	for _, img := range images {
		base := strings.TrimSuffix(img, filepath.Ext(img))
		recs, bad, err := nn.ReadLabelFile(filepath.Join(labelsDir, base+".txt"))
		if errors.Is(err, os.ErrNotExist) {
			res.Issues = append(res.Issues, Issue{Image: img, Kind: IssueMissingLabel})
			continue
		} else if err != nil {
			return nil, err
		}
		labels[img] = recs
		for _, b := range bad {
			res.Issues = append(res.Issues, Issue{Image: img, Line: b.Line, Kind: IssueMalformed, Detail: b.Reason})
		}
		for i, rec := range recs {
			if rec.Class >= len(names) {
				res.Issues = append(res.Issues, Issue{Image: img, Kind: IssueInvalidClass, Detail: LabelText(names, rec.Class)})
			}
			if !rec.InBounds() {
				res.Issues = append(res.Issues, Issue{Image: img, Kind: IssueOutOfBounds, Detail: fmt.Sprintf("box %v", i)})
			}
		}
		for _, pair := range FindDuplicates(recs, indexScale, indexScale, opts.DuplicateIoU) {
			res.Issues = append(res.Issues, Issue{
				Image:  img,
				Kind:   IssueDuplicate,
				Detail: fmt.Sprintf("boxes %v and %v (%v)", pair[0], pair[1], LabelText(names, recs[pair[0]].Class)),
			})
		}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	perm := rng.Perm(len(images))
	for _, idx := range perm[:max(0, min(opts.Samples, len(images)))] {
		res.Sampled = append(res.Sampled, images[idx])
	}

	if opts.OutDir != "" && len(res.Sampled) != 0 {
		if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
			return nil, err
		}
		for _, img := range res.Sampled {
			decoded, err := imgio.DecodeFile(filepath.Join(imagesDir, img))
			if err != nil {
				log.Warnf("Could not read image %v: %v", img, err)
				continue
			}
			out := filepath.Join(opts.OutDir, strings.TrimSuffix(img, filepath.Ext(img))+".jpg")
			if err := imgio.SaveImage(out, Annotate(decoded, labels[img], names)); err != nil {
				return nil, err
			}
			res.Annotated = append(res.Annotated, out)
		}
	}

	log.Infof("Checked %v images in '%v': %v issues", res.Images, split, len(res.Issues))
	return res, nil
}

func listImages(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, x := range exts {
			if ext == x {
				files = append(files, e.Name())
				break
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// FindDuplicates returns pairs of indices (i < j) of boxes that share a class and overlap
// with an IoU of at least minIoU.
func FindDuplicates(records []nn.LabelRecord, imgWidth, imgHeight int, minIoU float32) [][2]int {
	if len(records) < 2 {
		return nil
	}
	rects := make([]nn.Rect, len(records))
	fb := flatbush.NewFlatbush[int32]()
	fb.Reserve(len(records))
	for i, rec := range records {
		rects[i] = rec.PixelRect(imgWidth, imgHeight)
		fb.Add(int32(rects[i].X), int32(rects[i].Y), int32(rects[i].X2()), int32(rects[i].Y2()))
	}
	fb.Finish()

	pairs := [][2]int{}
	nearby := []int{}
	for i, r := range rects {
		nearby = fb.SearchFast(int32(r.X), int32(r.Y), int32(r.X2()), int32(r.Y2()), nearby)
		for _, j := range nearby {
			if j <= i || records[i].Class != records[j].Class {
				continue
			}
			if r.IOU(rects[j]) >= minIoU {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a][0] != pairs[b][0] {
			return pairs[a][0] < pairs[b][0]
		}
		return pairs[a][1] < pairs[b][1]
	})
	return pairs
}
