package detection

// Width is the horizontal extent of b. Inverted bounds have zero width.
func (b Bounds) Width() int {
	return max(b.X2-b.X1, 0)
}

// Height is the vertical extent of b. Inverted bounds have zero height.
func (b Bounds) Height() int {
	return max(b.Y2-b.Y1, 0)
}

// Area is Width × Height in square pixels.
func (b Bounds) Area() int {
	return b.Width() * b.Height()
}

// Empty reports whether b encloses no pixels.
func (b Bounds) Empty() bool {
	return b.Area() == 0
}

// Overlaps reports whether a and b share at least one pixel.
func (b Bounds) Overlaps(o Bounds) bool {
	return b.X1 < o.X2 && b.X2 > o.X1 && b.Y1 < o.Y2 && b.Y2 > o.Y1
}

// Intersect returns the shared region of b and o, or the zero Bounds.
func (b Bounds) Intersect(o Bounds) Bounds {
	if !b.Overlaps(o) {
		return Bounds{}
	}
	return Bounds{
		X1: max(b.X1, o.X1),
		Y1: max(b.Y1, o.Y1),
		X2: min(b.X2, o.X2),
		Y2: min(b.Y2, o.Y2),
	}
}

// IoU is the intersection-over-union ratio of b and o in [0, 1].
func (b Bounds) IoU(o Bounds) float64 {
	inter := b.Intersect(o).Area()
	if inter == 0 {
		return 0
	}
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Clamp limits b to the rectangle (0,0)-(width,height).
func (b Bounds) Clamp(width, height int) Bounds {
	return Bounds{
		X1: min(max(b.X1, 0), width),
		Y1: min(max(b.Y1, 0), height),
		X2: min(max(b.X2, 0), width),
		Y2: min(max(b.Y2, 0), height),
	}
}
