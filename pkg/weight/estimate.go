package weight

import (
	"fmt"
	"io"
	"sort"

	"github.com/cyclopcam/recycle/pkg/nn"
)

// Detection is one detected object, with its estimated weight.
// WeightG is nil if the material is not in the weight table.
type Detection struct {
	Box        [4]int  `json:"box_xyxy"`
	Material   string  `json:"material"`
	WeightG    *int    `json:"weight_g"`
	Confidence float32 `json:"confidence"`
}

// Label is the text drawn next to the box
func (d *Detection) Label() string {
	if d.WeightG == nil {
		return fmt.Sprintf("%v: ??g", d.Material)
	}
	return fmt.Sprintf("%v: %vg", d.Material, *d.WeightG)
}

// MaterialCount is the number of detections of one material
type MaterialCount struct {
	Material string `json:"material"`
	Count    int    `json:"count"`
}

// Estimate is the weight estimate of one image
type Estimate struct {
	TotalWeightG  int             `json:"total_weight_g"`
	TotalWeightKG float64         `json:"total_weight_kg"`
	Detections    []Detection     `json:"detections"`
	Counts        []MaterialCount `json:"-"` // In order of first detection
	Unknown       []string        `json:"-"` // Materials without a weight, sorted, each listed once
}

// Estimate converts raw detections into per-item weights and a total.
// Unknown materials contribute nothing to the total.
func (t *Table) Estimate(result *nn.DetectionResult, names []string) *Estimate {
	est := &Estimate{
		Detections: []Detection{},
	}
	countIdx := map[string]int{}
	unknown := map[string]bool{}
	for _, obj := range result.Objects {
		material := className(names, obj.Class)
		det := Detection{
			Box:        obj.Box.XYXY(),
			Material:   material,
			Confidence: obj.Confidence,
		}
		if g, ok := t.Lookup(material); ok {
			det.WeightG = &g
			est.TotalWeightG += g
		} else if !unknown[material] {
			unknown[material] = true
			est.Unknown = append(est.Unknown, material)
		}
		est.Detections = append(est.Detections, det)

		if i, ok := countIdx[material]; ok {
			est.Counts[i].Count++
		} else {
			countIdx[material] = len(est.Counts)
			est.Counts = append(est.Counts, MaterialCount{Material: material, Count: 1})
		}
	}
	sort.Strings(est.Unknown)
	est.TotalWeightKG = float64(est.TotalWeightG) / 1000
	return est
}

func className(names []string, id int) string {
	if id >= 0 && id < len(names) {
		return names[id]
	}
	return fmt.Sprintf("unknown_%v", id)
}

// WriteReport prints a human readable summary
func (e *Estimate) WriteReport(w io.Writer) {
	fmt.Fprintf(w, "--- Detection Report ---\n")
	if len(e.Counts) == 0 {
		fmt.Fprintf(w, "No items found to report.\n")
	}
	for _, c := range e.Counts {
		fmt.Fprintf(w, "Detected: %v x %v\n", c.Count, c.Material)
	}
	for _, u := range e.Unknown {
		fmt.Fprintf(w, "Warning: No weight defined for '%v'\n", u)
	}
	fmt.Fprintf(w, "---------------------------------\n")
	fmt.Fprintf(w, "TOTAL ESTIMATED WEIGHT: %v grams\n", e.TotalWeightG)
	fmt.Fprintf(w, "TOTAL ESTIMATED WEIGHT: %.2f kg\n", e.TotalWeightKG)
}
