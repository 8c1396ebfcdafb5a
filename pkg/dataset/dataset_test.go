package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/recycle/pkg/nn"
	"github.com/stretchr/testify/require"
)

// makeFolder creates <base>/<name> with the given classes, and 'n' images named <prefix>_<i>.jpg,
// each with a label line of "0 0.5 0.5 0.2 0.2". If classes is nil, no classes.txt is written.
func makeFolder(t *testing.T, base, name string, classes []string, prefix string, n int) {
	t.Helper()
	root := filepath.Join(base, name)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "images"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "labels"), 0755))
	if classes != nil {
		require.NoError(t, os.WriteFile(filepath.Join(root, "classes.txt"), []byte(strings.Join(classes, "\n")+"\n"), 0644))
	}
	for i := 0; i < n; i++ {
		b := fmt.Sprintf("%v_%03d", prefix, i)
		require.NoError(t, os.WriteFile(filepath.Join(root, "images", b+".jpg"), []byte("img-"+b), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(root, "labels", b+".txt"), []byte("0 0.5 0.5 0.2 0.2\n"), 0644))
	}
}

func listBasenames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := []string{}
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

func TestConfigValidate(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate())

	c.TrainRatio, c.ValRatio, c.TestRatio = 0.7, 0.2, 0.1
	require.NoError(t, c.Validate())

	c.TrainRatio, c.ValRatio, c.TestRatio = 0.7, 0.2, 0.2
	require.ErrorIs(t, c.Validate(), ErrRatioSum)

	c.TrainRatio, c.ValRatio, c.TestRatio = 1.2, -0.1, -0.1
	require.ErrorIs(t, c.Validate(), ErrInvalidRatio)

	c = DefaultConfig()
	c.Extensions = nil
	require.ErrorIs(t, c.Validate(), ErrNoExtensions)
}

func TestSplitCounts(t *testing.T) {
	c := DefaultConfig()
	cases := []struct {
		n, train, val, test int
	}{
		{0, 0, 0, 0},
		{1, 0, 0, 1},
		{2, 1, 0, 1},
		{3, 2, 0, 1},
		{4, 3, 0, 1},
		{10, 7, 1, 2},
		{100, 75, 15, 10},
	}
	for _, tc := range cases {
		names := []string{}
		for i := 0; i < tc.n; i++ {
			names = append(names, fmt.Sprintf("img%v", i))
		}
		p := c.Split(names)
		require.Equal(t, tc.train, len(p.Train), "n=%v", tc.n)
		require.Equal(t, tc.val, len(p.Val), "n=%v", tc.n)
		require.Equal(t, tc.test, len(p.Test), "n=%v", tc.n)

		// Disjoint and complete
		all := append(append(append([]string{}, p.Train...), p.Val...), p.Test...)
		sort.Strings(all)
		require.Equal(t, names2sorted(names), all)
	}
}

func names2sorted(s []string) []string {
	c := append([]string{}, s...)
	sort.Strings(c)
	return c
}

func TestSplitDeterministic(t *testing.T) {
	c := DefaultConfig()
	names := []string{}
	for i := 0; i < 50; i++ {
		names = append(names, fmt.Sprintf("x%02d", i))
	}
	a := c.Split(names)

	// Input order must not matter
	reversed := append([]string{}, names...)
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	b := c.Split(reversed)
	require.Equal(t, a, b)

	c.Seed = 7
	d := c.Split(names)
	require.NotEqual(t, a.Train, d.Train)
}

func TestRegistryFirstSeenOrder(t *testing.T) {
	base := t.TempDir()
	makeFolder(t, base, "a_glass", []string{"glass", "paper"}, "g", 1)
	makeFolder(t, base, "b_metal", []string{"paper", "metal"}, "m", 1)
	makeFolder(t, base, "c_none", nil, "n", 1)

	u := NewUnifier(logs.NewTestingLog(t), DefaultConfig())
	folders, err := ListMaterialFolders(base)
	require.NoError(t, err)
	require.Len(t, folders, 3)
	reg, err := u.BuildRegistry(folders)
	require.NoError(t, err)
	require.Equal(t, []string{"glass", "paper", "metal"}, reg.Names())

	m, err := u.BuildIndexMap(folders[1], reg)
	require.NoError(t, err)
	require.Equal(t, IndexMap{0: 1, 1: 2}, m)

	m, err = u.BuildIndexMap(folders[2], reg)
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestRunEndToEnd(t *testing.T) {
	base := t.TempDir()
	out := t.TempDir()
	makeFolder(t, base, "glass", []string{"glass", "paper"}, "g", 100)
	makeFolder(t, base, "metal", []string{"paper", "metal"}, "m", 10)
	makeFolder(t, base, "nolabels", nil, "z", 3)

	// One image with no label file, which must yield an empty label
	require.NoError(t, os.WriteFile(filepath.Join(base, "metal", "images", "neg.png"), []byte("neg"), 0644))
	// Preserve timestamps
	old := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(base, "glass", "images", "g_000.jpg"), old, old))

	report, err := Run(logs.NewTestingLog(t), base, out, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, []string{"glass", "paper", "metal"}, report.Names)

	// glass: 75/15/10, metal (11 images): 8/1/2
	require.Equal(t, 75+8, report.Totals[SplitTrain])
	require.Equal(t, 15+1, report.Totals[SplitVal])
	require.Equal(t, 10+2, report.Totals[SplitTest])

	// Every image has exactly one label, and no basename appears in two splits
	seen := map[string]Split{}
	for _, s := range AllSplits {
		images := listBasenames(t, filepath.Join(out, s.String(), "images"))
		labels := listBasenames(t, filepath.Join(out, s.String(), "labels"))
		require.Equal(t, images, labels)
		for _, b := range images {
			_, dup := seen[b]
			require.False(t, dup, b)
			seen[b] = s
		}
	}
	require.Len(t, seen, 111)

	// Remapped label: metal's local 0 (paper) becomes global 1
	for _, s := range AllSplits {
		p := filepath.Join(out, s.String(), "labels", "m_000.txt")
		if b, err := os.ReadFile(p); err == nil {
			require.Equal(t, "1 0.5 0.5 0.2 0.2", string(b))
		}
		p = filepath.Join(out, s.String(), "labels", "neg.txt")
		if b, err := os.ReadFile(p); err == nil {
			require.Equal(t, "", string(b))
		}
		p = filepath.Join(out, s.String(), "images", "g_000.jpg")
		if st, err := os.Stat(p); err == nil {
			require.True(t, st.ModTime().Equal(old))
		}
	}

	// Every class index is < nc
	m, err := LoadManifest(filepath.Join(out, ManifestFilename))
	require.NoError(t, err)
	require.Equal(t, 3, m.NC)
	require.Equal(t, "train/images", m.Train)
	require.Equal(t, "val/images", m.Val)
	require.Equal(t, "test/images", m.Test)
	for _, s := range AllSplits {
		dir := filepath.Join(out, s.String(), "labels")
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			recs, bad, err := nn.ReadLabelFile(filepath.Join(dir, e.Name()))
			require.NoError(t, err)
			require.Empty(t, bad)
			for _, r := range recs {
				require.Less(t, r.Class, m.NC)
			}
		}
	}

	// The folder without classes.txt is skipped with a warning
	require.True(t, report.Folders[2].Skipped)
	require.NotEmpty(t, report.Warnings)

	// Re-running produces the same split
	out2 := t.TempDir()
	_, err = Run(logs.NewTestingLog(t), base, out2, DefaultConfig())
	require.NoError(t, err)
	for _, s := range AllSplits {
		require.Equal(t, listBasenames(t, filepath.Join(out, s.String(), "images")), listBasenames(t, filepath.Join(out2, s.String(), "images")))
	}
}

func TestRunManifestKeyOrder(t *testing.T) {
	base := t.TempDir()
	out := t.TempDir()
	makeFolder(t, base, "glass", []string{"glass"}, "g", 4)
	_, err := Run(logs.NewTestingLog(t), base, out, DefaultConfig())
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(out, ManifestFilename))
	require.NoError(t, err)
	s := string(b)
	order := []string{"train:", "val:", "test:", "nc:", "names:"}
	last := -1
	for _, k := range order {
		i := strings.Index(s, k)
		require.Greater(t, i, last, k)
		last = i
	}
}

func TestRunLenientDropsUnknownClass(t *testing.T) {
	base := t.TempDir()
	out := t.TempDir()
	makeFolder(t, base, "glass", []string{"glass", "stone"}, "g", 1)
	// Class 1 (stone) is unknown when the global list is pinned
	p := filepath.Join(base, "glass", "labels", "g_000.txt")
	require.NoError(t, os.WriteFile(p, []byte("0 0.5 0.5 0.2 0.2\n1 0.1 0.1 0.1 0.1\nbogus line\n"), 0644))

	cfg := DefaultConfig()
	cfg.Classes = []string{"glass"}
	report, err := Run(logs.NewTestingLog(t), base, out, cfg)
	require.NoError(t, err)
	require.Equal(t, 1, report.Totals[SplitTest])
	b, err := os.ReadFile(filepath.Join(out, "test", "labels", "g_000.txt"))
	require.NoError(t, err)
	require.Equal(t, "0 0.5 0.5 0.2 0.2", string(b))
	require.GreaterOrEqual(t, len(report.Warnings), 3)
}

func TestRunStrictFailsBeforeOutput(t *testing.T) {
	base := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	makeFolder(t, base, "glass", []string{"glass", "stone"}, "g", 2)
	cfg := DefaultConfig()
	cfg.Classes = []string{"glass"}
	cfg.StrictClasses = true
	_, err := Run(logs.NewTestingLog(t), base, out, cfg)
	require.ErrorIs(t, err, ErrStrictClass)
	_, err = os.Stat(out)
	require.True(t, os.IsNotExist(err))
}

func TestRunErrors(t *testing.T) {
	base := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")

	cfg := DefaultConfig()
	cfg.TrainRatio = 0.9
	_, err := Run(logs.NewTestingLog(t), filepath.Join(base, "does-not-exist"), out, cfg)
	require.ErrorIs(t, err, ErrRatioSum)

	_, err = Run(logs.NewTestingLog(t), filepath.Join(base, "does-not-exist"), out, DefaultConfig())
	require.Error(t, err)

	makeFolder(t, base, "noclasses", nil, "x", 2)
	_, err = Run(logs.NewTestingLog(t), base, out, DefaultConfig())
	require.ErrorIs(t, err, ErrNoClasses)
	_, err = os.Stat(out)
	require.True(t, os.IsNotExist(err))
}

func TestRunBasenameCollision(t *testing.T) {
	base := t.TempDir()
	out := t.TempDir()
	makeFolder(t, base, "a", []string{"glass"}, "same", 1)
	makeFolder(t, base, "b", []string{"metal"}, "same", 1)
	report, err := Run(logs.NewTestingLog(t), base, out, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, 1, report.Totals[SplitTest])
	require.Equal(t, 1, report.Folders[1].Counts[SplitTest].Skipped)
	b, err := os.ReadFile(filepath.Join(out, "test", "images", "same_000.jpg"))
	require.NoError(t, err)
	require.Equal(t, "img-same_000", string(b))
}

func TestFindImageCase(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.JPG"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.Png"), nil, 0644))
	c := DefaultConfig()
	names, dups, err := c.listImageBasenames(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, names)
	require.Empty(t, dups)
	f, ok := c.findImage(dir, "a")
	require.True(t, ok)
	require.Equal(t, "a.JPG", f)
	f, ok = c.findImage(dir, "b")
	require.True(t, ok)
	require.Equal(t, "b.Png", f)
	_, ok = c.findImage(dir, "c")
	require.False(t, ok)
}

func TestRunIntoExistingOutput(t *testing.T) {
	base := t.TempDir()
	out := t.TempDir()
	makeFolder(t, base, "glass", []string{"glass"}, "g", 20)

	_, err := Run(logs.NewTestingLog(t), base, out, DefaultConfig())
	require.NoError(t, err)
	firstTrain := listBasenames(t, filepath.Join(out, "train", "images"))

	// A second run into the same directory is refused, and leaves the first dataset alone
	cfg := DefaultConfig()
	cfg.Seed = 7
	_, err = Run(logs.NewTestingLog(t), base, out, cfg)
	require.ErrorIs(t, err, ErrOutputExists)
	require.FileExists(t, filepath.Join(out, ManifestFilename))
	require.Equal(t, firstTrain, listBasenames(t, filepath.Join(out, "train", "images")))

	// With Overwrite, the new split replaces the old one completely
	cfg.Overwrite = true
	report, err := Run(logs.NewTestingLog(t), base, out, cfg)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, s := range AllSplits {
		images := listBasenames(t, filepath.Join(out, s.String(), "images"))
		require.Len(t, images, report.Totals[s])
		require.Equal(t, images, listBasenames(t, filepath.Join(out, s.String(), "labels")))
		for _, b := range images {
			require.False(t, seen[b], b)
			seen[b] = true
		}
	}
	require.Len(t, seen, 20)
	require.FileExists(t, filepath.Join(out, ManifestFilename))

	// A manifest on its own also counts as earlier output
	out2 := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out2, ManifestFilename), []byte("nc: 0\n"), 0644))
	_, err = Run(logs.NewTestingLog(t), base, out2, DefaultConfig())
	require.ErrorIs(t, err, ErrOutputExists)
}

func countWarnings(report *Report, substr string) int {
	n := 0
	for _, w := range report.Warnings {
		if strings.Contains(w, substr) {
			n++
		}
	}
	return n
}

func TestRunSkipsFolders(t *testing.T) {
	base := t.TempDir()
	out := t.TempDir()
	makeFolder(t, base, "a_good", []string{"glass"}, "g", 4)

	// classes.txt but no images directory
	require.NoError(t, os.MkdirAll(filepath.Join(base, "b_noimages", "labels"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "b_noimages", "classes.txt"), []byte("glass\n"), 0644))

	// images directory without any recognized image
	makeFolder(t, base, "c_emptyimages", []string{"glass"}, "e", 0)
	require.NoError(t, os.WriteFile(filepath.Join(base, "c_emptyimages", "images", "notes.md"), []byte("hi"), 0644))

	// classes.txt that can't be read
	makeFolder(t, base, "d_badclasses", nil, "d", 2)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "d_badclasses", "classes.txt"), 0755))

	report, err := Run(logs.NewTestingLog(t), base, out, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, report.Folders, 4)

	require.False(t, report.Folders[0].Skipped)
	require.Equal(t, 4, report.Totals[SplitTrain]+report.Totals[SplitVal]+report.Totals[SplitTest])
	require.Equal(t, 0, countWarnings(report, "a_good"))

	for _, name := range []string{"b_noimages", "c_emptyimages", "d_badclasses"} {
		var fr *FolderReport
		for i := range report.Folders {
			if report.Folders[i].Name == name {
				fr = &report.Folders[i]
			}
		}
		require.NotNil(t, fr, name)
		require.True(t, fr.Skipped, name)
		require.Equal(t, 1, countWarnings(report, name), name)
	}
	require.Len(t, report.Warnings, 3)

	// The unreadable class list is reported as such
	require.Equal(t, 1, countWarnings(report, ErrClassListUnreadable.Error()))
}

func TestMaterializeRemovesUnlabeledImage(t *testing.T) {
	base := t.TempDir()
	makeFolder(t, base, "glass", []string{"glass"}, "g", 2)
	folder := MaterialFolder{Name: "glass", Path: filepath.Join(base, "glass")}

	dirs, err := createOutputLayout(t.TempDir())
	require.NoError(t, err)
	dst := dirs[SplitTrain]
	// A directory in the way of the label file makes the label write fail
	require.NoError(t, os.MkdirAll(filepath.Join(dst.Labels, "g_000.txt"), 0755))

	u := NewUnifier(logs.NewTestingLog(t), DefaultConfig())
	counts := u.Materialize(folder, IndexMap{0: 0}, []string{"g_000", "g_001"}, dst)
	require.Equal(t, SplitCounts{Processed: 1, Skipped: 1}, counts)
	require.NoFileExists(t, filepath.Join(dst.Images, "g_000.jpg"))
	require.FileExists(t, filepath.Join(dst.Images, "g_001.jpg"))
	require.NotContains(t, u.written, "g_000")
	require.Contains(t, u.written, "g_001")
}
