package nn

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// ObjectDetection is an object that a neural network has found in an image
type ObjectDetection struct {
	Class      int     `json:"class"`
	Confidence float32 `json:"confidence"`
	Box        Rect    `json:"box"`
}

// LabelRecord is one line of a YOLO label file:
//
//	<class> <x_center> <y_center> <width> <height>
//
// The spatial values are normalized to [0,1], relative to the image dimensions.
type LabelRecord struct {
	Class   int
	XCenter float64
	YCenter float64
	Width   float64
	Height  float64

	// The spatial fields exactly as they appeared in the source file.
	// When populated, FormatLabelLine emits these instead of re-formatting the floats,
	// so that rewriting a label's class never perturbs its geometry.
	raw [4]string
}

// LineError describes a label line that could not be parsed
type LineError struct {
	Line   int // 1-based
	Text   string
	Reason string
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %v: %v (%q)", e.Line, e.Reason, e.Text)
}

// ParseLabelLine parses a single line of a YOLO label file.
// The line must contain exactly 5 whitespace-separated fields.
func ParseLabelLine(line string) (LabelRecord, error) {
	parts := strings.Fields(line)
	if len(parts) != 5 {
		return LabelRecord{}, fmt.Errorf("expected 5 fields, but found %v", len(parts))
	}
	cls, err := strconv.Atoi(parts[0])
	if err != nil {
		return LabelRecord{}, fmt.Errorf("invalid class index %q", parts[0])
	}
	if cls < 0 {
		return LabelRecord{}, fmt.Errorf("negative class index %v", cls)
	}
	rec := LabelRecord{Class: cls}
	dst := [4]*float64{&rec.XCenter, &rec.YCenter, &rec.Width, &rec.Height}
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(parts[i+1], 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return LabelRecord{}, fmt.Errorf("invalid coordinate %q", parts[i+1])
		}
		*dst[i] = v
		rec.raw[i] = parts[i+1]
	}
	return rec, nil
}

// NewLabelRecord creates a record from numeric values
func NewLabelRecord(class int, xCenter, yCenter, width, height float64) LabelRecord {
	return LabelRecord{
		Class:   class,
		XCenter: xCenter,
		YCenter: yCenter,
		Width:   width,
		Height:  height,
	}
}

// WithClass returns a copy of the record with a different class, and the geometry untouched
func (r LabelRecord) WithClass(class int) LabelRecord {
	r.Class = class
	return r
}

// InBounds returns true if the box center and size are all inside [0,1]
func (r LabelRecord) InBounds() bool {
	for _, v := range []float64{r.XCenter, r.YCenter, r.Width, r.Height} {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// PixelRect converts the normalized box into pixel coordinates, for an image of the given size
func (r LabelRecord) PixelRect(imgWidth, imgHeight int) Rect {
	xc := r.XCenter * float64(imgWidth)
	yc := r.YCenter * float64(imgHeight)
	w := r.Width * float64(imgWidth)
	h := r.Height * float64(imgHeight)
	return RectFromXYXY(int(xc-w/2), int(yc-h/2), int(xc+w/2), int(yc+h/2))
}

// FormatLabelLine returns the record as a YOLO label line (without a trailing newline)
func FormatLabelLine(r LabelRecord) string {
	fields := [5]string{strconv.Itoa(r.Class)}
	vals := [4]float64{r.XCenter, r.YCenter, r.Width, r.Height}
	for i := 0; i < 4; i++ {
		if r.raw[i] != "" {
			fields[i+1] = r.raw[i]
		} else {
			fields[i+1] = strconv.FormatFloat(vals[i], 'f', -1, 64)
		}
	}
	return strings.Join(fields[:], " ")
}

// ReadLabelFile reads a YOLO label file.
// Blank lines are ignored. Lines that fail to parse are returned in the second
// result, and do not cause the whole file to fail.
func ReadLabelFile(filename string) ([]LabelRecord, []LineError, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	records := []LabelRecord{}
	var bad []LineError
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		rec, err := ParseLabelLine(text)
		if err != nil {
			bad = append(bad, LineError{Line: lineNo, Text: text, Reason: err.Error()})
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return records, bad, nil
}

// WriteLabelFile writes records to a YOLO label file, one per line.
// An empty list produces an empty file, which is the convention for an image with no objects.
func WriteLabelFile(filename string, records []LabelRecord) error {
	buf := bytes.Buffer{}
	for i, r := range records {
		if i != 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(FormatLabelLine(r))
	}
	return os.WriteFile(filename, buf.Bytes(), 0644)
}
