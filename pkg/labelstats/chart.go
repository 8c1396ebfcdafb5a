package labelstats

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
)

// palette is cycled across bars
var palette = []color.RGBA{
	{141, 211, 199, 255},
	{255, 255, 179, 255},
	{190, 186, 218, 255},
	{251, 128, 114, 255},
	{128, 177, 211, 255},
	{253, 180, 98, 255},
	{179, 222, 105, 255},
	{252, 205, 229, 255},
	{217, 217, 217, 255},
	{188, 128, 189, 255},
	{204, 235, 197, 255},
	{255, 237, 111, 255},
}

// RenderChart draws a bar chart of boxes per class, with the count above each bar.
// Returns nil if there are no boxes.
func (s *Stats) RenderChart(names []string, width, height int) image.Image {
	rows := s.Rows(names)
	if len(rows) == 0 {
		return nil
	}
	maxCount := 0
	for _, r := range rows {
		maxCount = max(maxCount, r.Count)
	}

	const marginLeft = 60.0
	const marginRight = 20.0
	const marginTop = 40.0
	const marginBottom = 90.0

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored("Number of Objects per Class", float64(width)/2, marginTop/2, 0.5, 0.5)

	plotW := float64(width) - marginLeft - marginRight
	plotH := float64(height) - marginTop - marginBottom
	baseY := marginTop + plotH

	// Axes
	dc.SetLineWidth(1)
	dc.DrawLine(marginLeft, marginTop, marginLeft, baseY)
	dc.DrawLine(marginLeft, baseY, marginLeft+plotW, baseY)
	dc.Stroke()
	dc.DrawStringAnchored(fmt.Sprintf("%v", maxCount), marginLeft-6, marginTop, 1, 0.5)
	dc.DrawStringAnchored("0", marginLeft-6, baseY, 1, 0.5)

	slot := plotW / float64(len(rows))
	barW := slot * 0.7
	for i, r := range rows {
		barH := plotH * float64(r.Count) / float64(maxCount)
		x := marginLeft + slot*float64(i) + (slot-barW)/2
		y := baseY - barH
		c := palette[i%len(palette)]
		dc.SetColor(c)
		dc.DrawRectangle(x, y, barW, barH)
		dc.Fill()

		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(fmt.Sprintf("%v", r.Count), x+barW/2, y-4, 0.5, 0)

		// Slanted class name under the bar
		dc.Push()
		lx := x + barW/2
		ly := baseY + 8
		dc.RotateAbout(gg.Radians(-15), lx, ly)
		dc.DrawStringAnchored(r.Name, lx, ly, 1, 1)
		dc.Pop()
	}
	return dc.Image()
}

// SaveChart renders the chart and writes it as a PNG
func (s *Stats) SaveChart(filename string, names []string, width, height int) error {
	img := s.RenderChart(names, width, height)
	if img == nil {
		return fmt.Errorf("No bounding boxes to chart")
	}
	return gg.SavePNG(filename, img)
}

