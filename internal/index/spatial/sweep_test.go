package spatial

import "testing"

func pairSet(pairs []Pair) map[[2]int32]bool {
	set := make(map[[2]int32]bool, len(pairs))
	for _, p := range pairs {
		a, b := p.A, p.B
		if a > b {
			a, b = b, a
		}
		set[[2]int32{a, b}] = true
	}
	return set
}

// TestCandidatePairsBasic tests X-interval overlap detection
func TestCandidatePairsBasic(t *testing.T) {
	s := NewSweep(8)
	boxes := []Box{
		{X: 0, Y: 0, Width: 100, Height: 100},
		{X: 50, Y: 50, Width: 100, Height: 100},  // overlaps 0
		{X: 500, Y: 0, Width: 100, Height: 100},  // far right, no overlap
	}

	set := pairSet(s.CandidatePairs(boxes))
	if !set[[2]int32{0, 1}] {
		t.Error("Expected candidate pair (0,1)")
	}
	if set[[2]int32{0, 2}] || set[[2]int32{1, 2}] {
		t.Error("Expected no candidate pairs involving box 2")
	}
}

// TestCandidatePairsSuperset tests that Y-separated boxes still appear
// as candidates; the exact narrow phase removes them
func TestCandidatePairsSuperset(t *testing.T) {
	s := NewSweep(8)
	boxes := []Box{
		{X: 0, Y: 0, Width: 100, Height: 10},
		{X: 0, Y: 500, Width: 100, Height: 10}, // same X interval, far in Y
	}

	set := pairSet(s.CandidatePairs(boxes))
	if !set[[2]int32{0, 1}] {
		t.Error("X-overlapping boxes should be broad-phase candidates regardless of Y")
	}
	if boxes[0].Intersects(boxes[1]) {
		t.Error("Narrow phase should reject the Y-separated pair")
	}
}

// TestCandidatePairsReuse tests buffer reuse across sweeps
func TestCandidatePairsReuse(t *testing.T) {
	s := NewSweep(4)

	boxes := []Box{
		{X: 0, Width: 10, Height: 10},
		{X: 5, Width: 10, Height: 10},
	}
	first := s.CandidatePairs(boxes)
	if len(first) != 1 {
		t.Fatalf("Expected 1 pair, got %d", len(first))
	}

	// Second sweep with disjoint boxes must yield no stale pairs
	disjoint := []Box{
		{X: 0, Width: 10, Height: 10},
		{X: 100, Width: 10, Height: 10},
	}
	second := s.CandidatePairs(disjoint)
	if len(second) != 0 {
		t.Errorf("Expected 0 pairs after reuse, got %d", len(second))
	}
}

// TestCandidatePairsSortFallback tests the stdlib sort path
func TestCandidatePairsSortFallback(t *testing.T) {
	s := NewSweep(8)
	s.SetInsertionSort(false)

	boxes := []Box{
		{X: 300, Width: 50, Height: 50},
		{X: 0, Width: 50, Height: 50},
		{X: 320, Width: 50, Height: 50},
		{X: 10, Width: 50, Height: 50},
	}

	set := pairSet(s.CandidatePairs(boxes))
	if !set[[2]int32{0, 2}] {
		t.Error("Expected candidate pair (0,2)")
	}
	if !set[[2]int32{1, 3}] {
		t.Error("Expected candidate pair (1,3)")
	}
	if len(set) != 2 {
		t.Errorf("Expected exactly 2 pairs, got %d", len(set))
	}
}

// TestCandidatePairsEmpty tests degenerate inputs
func TestCandidatePairsEmpty(t *testing.T) {
	s := NewSweep(4)

	if pairs := s.CandidatePairs(nil); len(pairs) != 0 {
		t.Errorf("Expected no pairs for empty input, got %d", len(pairs))
	}
	if pairs := s.CandidatePairs([]Box{{X: 0, Width: 10}}); len(pairs) != 0 {
		t.Errorf("Expected no pairs for single box, got %d", len(pairs))
	}
}
