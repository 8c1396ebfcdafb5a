// Package labelcheck verifies a split dataset by drawing its labels and looking for suspicious boxes
package labelcheck

import (
	"fmt"
	"image"

	"github.com/cyclopcam/recycle/pkg/nn"
	"github.com/fogleman/gg"
)

// LabelText returns the class name, or INVALID_ID_<n> if the ID is out of range
func LabelText(names []string, class int) string {
	if class >= 0 && class < len(names) {
		return names[class]
	}
	return fmt.Sprintf("INVALID_ID_%v", class)
}

// Annotate returns a copy of img with every label drawn as a green box and its class name
func Annotate(img image.Image, records []nn.LabelRecord, names []string) image.Image {
	dc := gg.NewContextForImage(img)
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	dc.SetLineWidth(2)
	for _, rec := range records {
		r := rec.PixelRect(w, h)
		dc.SetRGB(0, 1, 0)
		dc.DrawRectangle(float64(r.X), float64(r.Y), float64(r.Width), float64(r.Height))
		dc.Stroke()
		dc.DrawString(LabelText(names, rec.Class), float64(r.X), float64(r.Y)-10)
	}
	return dc.Image()
}
