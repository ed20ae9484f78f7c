package spatial

import "math"

// Box is an axis-aligned rectangle in canvas coordinates.
// Width and Height are expected to be >= 0.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Intersects reports whether two boxes overlap.
// The test uses open intervals: boxes that merely touch at an edge or
// corner do NOT intersect. This is the same test used for collision
// detection, so collision is symmetric by construction.
func (b Box) Intersects(o Box) bool {
	return b.X < o.X+o.Width && o.X < b.X+b.Width &&
		b.Y < o.Y+o.Height && o.Y < b.Y+b.Height
}

// ContainsPoint reports whether (x, y) lies within the box.
// Boundaries are inclusive: a point exactly on an edge counts as
// contained. Note the asymmetry with Intersects, which is exclusive.
func (b Box) ContainsPoint(x, y float64) bool {
	return x >= b.X && x <= b.X+b.Width && y >= b.Y && y <= b.Y+b.Height
}

// DistanceToPoint returns the Euclidean distance from (x, y) to the
// nearest point of the box: zero if the point is inside, otherwise the
// distance to the closest edge or corner.
func (b Box) DistanceToPoint(x, y float64) float64 {
	dx := math.Max(math.Max(b.X-x, 0), x-(b.X+b.Width))
	dy := math.Max(math.Max(b.Y-y, 0), y-(b.Y+b.Height))
	return math.Sqrt(dx*dx + dy*dy)
}

// Area returns Width * Height.
func (b Box) Area() float64 {
	return b.Width * b.Height
}
