package weight

import (
	"image"

	"github.com/fogleman/gg"
)

// AnnotateDetections draws every detection box with its "<material>: <weight>g" label
func AnnotateDetections(img image.Image, est *Estimate) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetLineWidth(2)
	for i := range est.Detections {
		det := &est.Detections[i]
		x1, y1 := float64(det.Box[0]), float64(det.Box[1])
		w := float64(det.Box[2] - det.Box[0])
		h := float64(det.Box[3] - det.Box[1])
		dc.SetRGB255(0, 200, 0)
		dc.DrawRectangle(x1, y1, w, h)
		dc.Stroke()

		// Filled tag above the box, or inside it if the box touches the top edge
		label := det.Label()
		tw, th := dc.MeasureString(label)
		ty := y1 - th - 4
		if ty < 0 {
			ty = y1
		}
		dc.DrawRectangle(x1, ty, tw+4, th+4)
		dc.Fill()
		dc.SetRGB(1, 1, 1)
		dc.DrawStringAnchored(label, x1+2, ty+2, 0, 1)
	}
	return dc.Image()
}
