package nn

// Rect is a box in pixel coordinates
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Make a rect from two corners
func RectFromXYXY(x1, y1, x2, y2 int) Rect {
	return Rect{
		X:      x1,
		Y:      y1,
		Width:  x2 - x1,
		Height: y2 - y1,
	}
}

func (r Rect) X2() int {
	return r.X + r.Width
}

func (r Rect) Y2() int {
	return r.Y + r.Height
}

// Returns [x1, y1, x2, y2]
func (r Rect) XYXY() [4]int {
	return [4]int{r.X, r.Y, r.X2(), r.Y2()}
}

func (r Rect) Area() int {
	return r.Width * r.Height
}

func (r Rect) Intersection(b Rect) Rect {
	x1 := max(r.X, b.X)
	y1 := max(r.Y, b.Y)
	x2 := min(r.X+r.Width, b.X+b.Width)
	y2 := min(r.Y+r.Height, b.Y+b.Height)
	return Rect{
		X:      x1,
		Y:      y1,
		Width:  max(0, x2-x1),
		Height: max(0, y2-y1),
	}
}

// Intersection over Union
func (r Rect) IOU(b Rect) float32 {
	intersection := r.Intersection(b)
	union := r.Area() + b.Area() - intersection.Area()
	if union <= 0 {
		return 0
	}
	return float32(intersection.Area()) / float32(union)
}
