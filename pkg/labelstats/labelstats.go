// Package labelstats counts bounding boxes per class in a YOLO label directory
package labelstats

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cyclopcam/logs"
)

// Stats is the class distribution of one label directory
type Stats struct {
	ClassCounts     map[int]int
	TotalBoxes      int
	ValidLabelFiles int // Label files that have a matching image
	MissingImages   int // Label files without a matching image (not counted)
	MalformedLines  int
}

// Row is one line of the distribution table
type Row struct {
	ClassID    int
	Name       string
	Count      int
	Percentage float64
}

// Count scans every .txt file in labelDir. A label file is only counted if an image
// with the same basename and one of 'exts' exists in imageDir.
// A line needs at least 5 fields and an integer class to be counted.
func Count(log logs.Log, labelDir, imageDir string, exts []string) (*Stats, error) {
	if st, err := os.Stat(labelDir); err != nil || !st.IsDir() {
		return nil, fmt.Errorf("Label directory not found: %v", labelDir)
	}
	if st, err := os.Stat(imageDir); err != nil || !st.IsDir() {
		return nil, fmt.Errorf("Image directory not found: %v", imageDir)
	}

	entries, err := os.ReadDir(labelDir)
	if err != nil {
		return nil, err
	}

	s := &Stats{
		ClassCounts: map[int]int{},
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			continue
		}
		base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if !hasImage(imageDir, base, exts) {
			s.MissingImages++
			continue
		}
		if err := s.countFile(filepath.Join(labelDir, e.Name())); err != nil {
			log.Warnf("Error reading %v: %v", e.Name(), err)
			continue
		}
		s.ValidLabelFiles++
	}
	return s, nil
}

func hasImage(dir, base string, exts []string) bool {
	for _, ext := range exts {
		if _, err := os.Stat(filepath.Join(dir, base+ext)); err == nil {
			return true
		}
	}
	return false
}

func (s *Stats) countFile(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 5 {
			s.MalformedLines++
			continue
		}
		cls, err := strconv.Atoi(fields[0])
		if err != nil {
			s.MalformedLines++
			continue
		}
		s.ClassCounts[cls]++
		s.TotalBoxes++
	}
	return scanner.Err()
}

// ClassName returns names[id], or unknown_<id> if id is out of range
func ClassName(names []string, id int) string {
	if id >= 0 && id < len(names) {
		return names[id]
	}
	return fmt.Sprintf("unknown_%v", id)
}

// Rows returns one row per class that has at least one box, ordered by class ID
func (s *Stats) Rows(names []string) []Row {
	ids := make([]int, 0, len(s.ClassCounts))
	for id := range s.ClassCounts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	rows := make([]Row, 0, len(ids))
	for _, id := range ids {
		pct := 0.0
		if s.TotalBoxes > 0 {
			pct = float64(s.ClassCounts[id]) * 100 / float64(s.TotalBoxes)
		}
		rows = append(rows, Row{
			ClassID:    id,
			Name:       ClassName(names, id),
			Count:      s.ClassCounts[id],
			Percentage: pct,
		})
	}
	return rows
}

// WriteTable prints the distribution summary
func (s *Stats) WriteTable(w io.Writer, names []string) {
	line := strings.Repeat("=", 60)
	thin := strings.Repeat("-", 60)
	fmt.Fprintf(w, "%v\nCLASS DISTRIBUTION SUMMARY\n%v\n", line, line)
	fmt.Fprintf(w, "Total images with labels: %v\n", s.ValidLabelFiles)
	if s.MissingImages > 0 {
		fmt.Fprintf(w, "Labels without images: %v\n", s.MissingImages)
	}
	fmt.Fprintf(w, "Total bounding boxes: %v\n\n", s.TotalBoxes)
	fmt.Fprintf(w, "%-8s %-24s %-8s %v\n%v\n", "Class ID", "Class Name", "Count", "Percentage", thin)
	for _, r := range s.Rows(names) {
		fmt.Fprintf(w, "%-8d %-24s %-8d %.2f%%\n", r.ClassID, r.Name, r.Count, r.Percentage)
	}
	fmt.Fprintf(w, "%v\n", thin)
}
