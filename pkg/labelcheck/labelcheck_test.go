package labelcheck

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/recycle/pkg/imgio"
	"github.com/cyclopcam/recycle/pkg/nn"
	"github.com/stretchr/testify/require"
)

func blankImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{0, 0, 0, 255})
		}
	}
	return img
}

func TestFindDuplicates(t *testing.T) {
	recs := []nn.LabelRecord{
		nn.NewLabelRecord(0, 0.5, 0.5, 0.2, 0.2),
		nn.NewLabelRecord(0, 0.5, 0.5, 0.2, 0.2),   // exact duplicate of 0
		nn.NewLabelRecord(1, 0.5, 0.5, 0.2, 0.2),   // same box, other class
		nn.NewLabelRecord(0, 0.1, 0.1, 0.05, 0.05), // far away
		nn.NewLabelRecord(0, 0.51, 0.5, 0.2, 0.2),  // slight shift of 0
	}
	pairs := FindDuplicates(recs, 1000, 1000, 0.9)
	require.Equal(t, [][2]int{{0, 1}, {0, 4}, {1, 4}}, pairs)

	require.Equal(t, [][2]int{{0, 1}}, FindDuplicates(recs, 1000, 1000, 0.99))
	require.Nil(t, FindDuplicates(recs[:1], 1000, 1000, 0.5))
}

func TestAnnotate(t *testing.T) {
	img := blankImage(100, 100)
	recs := []nn.LabelRecord{nn.NewLabelRecord(0, 0.5, 0.5, 0.5, 0.5)}
	out := Annotate(img, recs, []string{"glass"})
	// Left edge of the box is green
	r, g, b, _ := out.At(25, 50).RGBA()
	require.Equal(t, uint32(0), r)
	require.Greater(t, g, uint32(0x8000))
	require.Equal(t, uint32(0), b)
	// Center is untouched
	_, g, _, _ = out.At(50, 50).RGBA()
	require.Equal(t, uint32(0), g)

	require.Equal(t, "glass", LabelText([]string{"glass"}, 0))
	require.Equal(t, "INVALID_ID_3", LabelText([]string{"glass"}, 3))
}

func TestCheckSplit(t *testing.T) {
	root := t.TempDir()
	images := filepath.Join(root, "train", "images")
	labels := filepath.Join(root, "train", "labels")
	require.NoError(t, os.MkdirAll(images, 0755))
	require.NoError(t, os.MkdirAll(labels, 0755))

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, imgio.SaveImage(filepath.Join(images, name+".png"), blankImage(64, 48)))
	}
	require.NoError(t, os.WriteFile(filepath.Join(labels, "a.txt"), []byte("0 0.5 0.5 0.2 0.2\n0 0.5 0.5 0.2 0.2\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(labels, "b.txt"), []byte("5 0.5 0.5 0.2 0.2\n1 1.5 0.5 0.2 0.2\nbad\n"), 0644))

	opts := DefaultOptions()
	opts.Samples = 2
	opts.OutDir = filepath.Join(root, "annotated")
	res, err := CheckSplit(logs.NewTestingLog(t), root, "train", []string{"glass", "paper"}, opts)
	require.NoError(t, err)
	require.Equal(t, 3, res.Images)
	require.Len(t, res.Sampled, 2)
	require.Len(t, res.Annotated, 2)
	for _, p := range res.Annotated {
		_, err := os.Stat(p)
		require.NoError(t, err)
	}
	require.Equal(t, 1, res.Count(IssueMissingLabel))
	require.Equal(t, 1, res.Count(IssueDuplicate))
	require.Equal(t, 1, res.Count(IssueInvalidClass))
	require.Equal(t, 1, res.Count(IssueOutOfBounds))
	require.Equal(t, 1, res.Count(IssueMalformed))

	// Same seed, same sample
	opts.OutDir = ""
	res2, err := CheckSplit(logs.NewTestingLog(t), root, "train", []string{"glass", "paper"}, opts)
	require.NoError(t, err)
	require.Equal(t, res.Sampled, res2.Sampled)
	require.Empty(t, res2.Annotated)

	_, err = CheckSplit(logs.NewTestingLog(t), root, "val", nil, opts)
	require.Error(t, err)
}
