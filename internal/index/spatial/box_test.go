package spatial

import (
	"math"
	"testing"
)

// TestIntersectsOverlapping tests basic rectangle overlap
func TestIntersectsOverlapping(t *testing.T) {
	a := Box{X: 0, Y: 0, Width: 100, Height: 100}
	b := Box{X: 50, Y: 50, Width: 100, Height: 100}

	if !a.Intersects(b) {
		t.Error("Expected overlapping boxes to intersect")
	}
	if !b.Intersects(a) {
		t.Error("Expected intersection to be symmetric")
	}
}

// TestIntersectsTouchingEdge tests that edge-touching boxes do NOT
// intersect (open intervals)
func TestIntersectsTouchingEdge(t *testing.T) {
	a := Box{X: 0, Y: 0, Width: 100, Height: 100}
	b := Box{X: 100, Y: 0, Width: 100, Height: 100}

	if a.Intersects(b) {
		t.Error("Boxes touching at an edge should not intersect")
	}

	corner := Box{X: 100, Y: 100, Width: 50, Height: 50}
	if a.Intersects(corner) {
		t.Error("Boxes touching at a corner should not intersect")
	}
}

// TestIntersectsDisjoint tests clearly separated boxes
func TestIntersectsDisjoint(t *testing.T) {
	a := Box{X: 0, Y: 0, Width: 10, Height: 10}
	b := Box{X: 100, Y: 100, Width: 10, Height: 10}

	if a.Intersects(b) {
		t.Error("Disjoint boxes should not intersect")
	}
}

// TestContainsPointInclusive tests that boundaries count as contained,
// unlike the exclusive Intersects test
func TestContainsPointInclusive(t *testing.T) {
	b := Box{X: 50, Y: 50, Width: 40, Height: 40}

	cases := []struct {
		x, y float64
		want bool
	}{
		{70, 70, true},   // interior
		{50, 50, true},   // top-left corner
		{90, 90, true},   // bottom-right corner (boundary inclusive)
		{90, 70, true},   // right edge
		{91, 91, false},  // just outside
		{49.9, 70, false},
	}

	for _, c := range cases {
		if got := b.ContainsPoint(c.x, c.y); got != c.want {
			t.Errorf("ContainsPoint(%v, %v) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

// TestDistanceToPoint tests the clamped point-to-rectangle distance
func TestDistanceToPoint(t *testing.T) {
	b := Box{X: 100, Y: 100, Width: 50, Height: 50}

	// Inside -> zero
	if d := b.DistanceToPoint(120, 120); d != 0 {
		t.Errorf("Expected distance 0 for interior point, got %v", d)
	}

	// On an edge -> zero
	if d := b.DistanceToPoint(100, 120); d != 0 {
		t.Errorf("Expected distance 0 for edge point, got %v", d)
	}

	// Directly left of the box
	if d := b.DistanceToPoint(90, 120); d != 10 {
		t.Errorf("Expected distance 10, got %v", d)
	}

	// Diagonal from the top-left corner: 3-4-5 triangle
	if d := b.DistanceToPoint(97, 96); math.Abs(d-5) > 1e-9 {
		t.Errorf("Expected distance 5, got %v", d)
	}
}

// TestArea tests area computation
func TestArea(t *testing.T) {
	b := Box{X: 10, Y: 20, Width: 30, Height: 40}
	if a := b.Area(); a != 1200 {
		t.Errorf("Expected area 1200, got %v", a)
	}

	zero := Box{Width: 0, Height: 100}
	if a := zero.Area(); a != 0 {
		t.Errorf("Expected area 0 for zero-width box, got %v", a)
	}
}
