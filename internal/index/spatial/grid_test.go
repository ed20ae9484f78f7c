package spatial

import (
	"sync"
	"testing"
)

func testGrid() *Grid {
	return NewGrid(Box{X: 0, Y: 0, Width: 1000, Height: 1000}, 100)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// TestNewGridDimensions tests row/column derivation from bounds
func TestNewGridDimensions(t *testing.T) {
	g := testGrid()
	rows, cols := g.Dimensions()
	if rows != 10 || cols != 10 {
		t.Errorf("Expected 10x10 grid, got %dx%d", rows, cols)
	}

	// Non-divisible extent rounds up
	g2 := NewGrid(Box{Width: 250, Height: 101}, 100)
	rows, cols = g2.Dimensions()
	if rows != 2 || cols != 3 {
		t.Errorf("Expected 2x3 grid, got %dx%d", rows, cols)
	}
}

// TestNewGridDegenerate tests zero-extent universes
func TestNewGridDegenerate(t *testing.T) {
	g := NewGrid(Box{Width: 0, Height: 1000}, 100)
	rows, cols := g.Dimensions()
	if rows != 10 || cols != 0 {
		t.Errorf("Expected 10x0 grid, got %dx%d", rows, cols)
	}

	// Operations on a degenerate grid are no-ops
	g.AddMembership("a", Box{X: 10, Y: 10, Width: 5, Height: 5})
	if cells := g.IntersectingCells(Box{X: 0, Y: 0, Width: 100, Height: 100}); len(cells) != 0 {
		t.Errorf("Expected no intersecting cells in degenerate grid, got %d", len(cells))
	}
	if _, ok := g.CellCoords(5, 5); ok {
		t.Error("CellCoords should fail on a degenerate grid")
	}
}

// TestCellCoords tests point-to-cell mapping
func TestCellCoords(t *testing.T) {
	g := testGrid()

	c, ok := g.CellCoords(250, 730)
	if !ok {
		t.Fatal("Expected point inside universe to map to a cell")
	}
	if c.Row != 7 || c.Col != 2 {
		t.Errorf("Expected cell (7,2), got (%d,%d)", c.Row, c.Col)
	}

	// Origin maps to cell (0,0)
	c, ok = g.CellCoords(0, 0)
	if !ok || c.Row != 0 || c.Col != 0 {
		t.Errorf("Expected origin in cell (0,0), got (%d,%d) ok=%v", c.Row, c.Col, ok)
	}

	// Outside the universe
	if _, ok := g.CellCoords(-1, 500); ok {
		t.Error("Expected point left of universe to have no cell")
	}
	if _, ok := g.CellCoords(500, 1000); ok {
		t.Error("Expected point at bottom boundary (1000) to be outside the 10-row grid")
	}
}

// TestCellCoordsNonZeroOrigin tests grids whose universe does not start
// at the origin
func TestCellCoordsNonZeroOrigin(t *testing.T) {
	g := NewGrid(Box{X: -500, Y: -500, Width: 1000, Height: 1000}, 100)

	c, ok := g.CellCoords(0, 0)
	if !ok || c.Row != 5 || c.Col != 5 {
		t.Errorf("Expected (0,0) in cell (5,5), got (%d,%d) ok=%v", c.Row, c.Col, ok)
	}

	c, ok = g.CellCoords(-500, -500)
	if !ok || c.Row != 0 || c.Col != 0 {
		t.Errorf("Expected universe origin in cell (0,0), got (%d,%d) ok=%v", c.Row, c.Col, ok)
	}
}

// TestIntersectingCells tests box-to-cell-range mapping
func TestIntersectingCells(t *testing.T) {
	g := testGrid()

	// Box inside a single cell
	cells := g.IntersectingCells(Box{X: 10, Y: 10, Width: 50, Height: 50})
	if len(cells) != 1 {
		t.Fatalf("Expected 1 cell, got %d", len(cells))
	}
	if cells[0] != (Cell{Row: 0, Col: 0}) {
		t.Errorf("Expected cell (0,0), got %v", cells[0])
	}

	// Box spanning a 2x2 block
	cells = g.IntersectingCells(Box{X: 50, Y: 50, Width: 100, Height: 100})
	if len(cells) != 4 {
		t.Errorf("Expected 4 cells for a spanning box, got %d", len(cells))
	}
}

// TestIntersectingCellsClipping tests that out-of-universe portions are
// silently dropped
func TestIntersectingCellsClipping(t *testing.T) {
	g := testGrid()

	// Box hanging off the right edge: only the in-universe part counts
	cells := g.IntersectingCells(Box{X: 950, Y: 0, Width: 200, Height: 50})
	if len(cells) != 1 {
		t.Errorf("Expected 1 clipped cell, got %d", len(cells))
	}

	// Box entirely outside
	cells = g.IntersectingCells(Box{X: 2000, Y: 2000, Width: 100, Height: 100})
	if len(cells) != 0 {
		t.Errorf("Expected no cells for out-of-universe box, got %d", len(cells))
	}
}

// TestIntersectingCellsConcurrent tests that simultaneous cell-range
// queries against one grid do not interfere with each other
func TestIntersectingCellsConcurrent(t *testing.T) {
	g := testGrid()
	g.AddMembership("a", Box{X: 50, Y: 50, Width: 100, Height: 100})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				cells := g.IntersectingCells(Box{X: 50, Y: 50, Width: 100, Height: 100})
				if len(cells) != 4 {
					t.Errorf("Expected 4 cells, got %d", len(cells))
					return
				}
			}
		}()
	}
	wg.Wait()
}

// TestMembershipLifecycle tests add/update/remove across cells
func TestMembershipLifecycle(t *testing.T) {
	g := testGrid()

	box := Box{X: 50, Y: 50, Width: 100, Height: 100} // spans 4 cells
	g.AddMembership("a", box)

	for _, c := range g.IntersectingCells(box) {
		if _, ok := g.CellItems(c)["a"]; !ok {
			t.Errorf("Expected item in cell %v after add", c)
		}
	}

	// Move to a distant cell
	newBox := Box{X: 810, Y: 810, Width: 50, Height: 50}
	g.UpdateMembership("a", box, newBox)

	for _, c := range g.IntersectingCells(box) {
		if _, ok := g.CellItems(c)["a"]; ok {
			t.Errorf("Expected item gone from old cell %v after update", c)
		}
	}
	c, _ := g.CellCoords(820, 820)
	if _, ok := g.CellItems(c)["a"]; !ok {
		t.Error("Expected item in new cell after update")
	}

	g.RemoveMembershipAt("a", newBox)
	if _, ok := g.CellItems(c)["a"]; ok {
		t.Error("Expected item gone after remove")
	}
}

// TestRemoveMembershipFullScan tests the fallback full-cell scan
func TestRemoveMembershipFullScan(t *testing.T) {
	g := testGrid()
	g.AddMembership("a", Box{X: 0, Y: 0, Width: 1000, Height: 1000})

	g.RemoveMembership("a")

	occupied, _, _ := g.Scan()
	if occupied != 0 {
		t.Errorf("Expected 0 occupied cells after full-scan remove, got %d", occupied)
	}
}

// TestRingCells tests Chebyshev ring enumeration
func TestRingCells(t *testing.T) {
	g := testGrid()
	center := Cell{Row: 5, Col: 5}

	// Ring 0 is the center itself
	var ring0 []Cell
	g.RingCells(center, 0, func(c Cell) { ring0 = append(ring0, c) })
	if len(ring0) != 1 || ring0[0] != center {
		t.Errorf("Expected ring 0 = [center], got %v", ring0)
	}

	// Ring 1 around an interior cell has 8 cells, each visited once
	seen := make(map[Cell]bool)
	g.RingCells(center, 1, func(c Cell) {
		if seen[c] {
			t.Errorf("Cell %v visited twice in ring 1", c)
		}
		seen[c] = true
		dRow := c.Row - center.Row
		dCol := c.Col - center.Col
		if max(abs(dRow), abs(dCol)) != 1 {
			t.Errorf("Cell %v is not at Chebyshev distance 1", c)
		}
	})
	if len(seen) != 8 {
		t.Errorf("Expected 8 cells in ring 1, got %d", len(seen))
	}

	// Ring 2 has 16 cells, each visited once
	seen = make(map[Cell]bool)
	g.RingCells(center, 2, func(c Cell) {
		if seen[c] {
			t.Errorf("Cell %v visited twice in ring 2", c)
		}
		seen[c] = true
	})
	if len(seen) != 16 {
		t.Errorf("Expected 16 cells in ring 2, got %d", len(seen))
	}
}

// TestRingCellsClipped tests that rings near the edge drop out-of-grid cells
func TestRingCellsClipped(t *testing.T) {
	g := testGrid()

	// Corner cell: ring 1 has only 3 in-grid neighbors
	count := 0
	g.RingCells(Cell{Row: 0, Col: 0}, 1, func(Cell) { count++ })
	if count != 3 {
		t.Errorf("Expected 3 cells in corner ring 1, got %d", count)
	}
}

// TestScan tests occupancy aggregates
func TestScan(t *testing.T) {
	g := testGrid()

	g.AddMembership("a", Box{X: 10, Y: 10, Width: 10, Height: 10})
	g.AddMembership("b", Box{X: 20, Y: 20, Width: 10, Height: 10})
	g.AddMembership("c", Box{X: 510, Y: 510, Width: 10, Height: 10})

	occupied, maxPerCell, total := g.Scan()
	if occupied != 2 {
		t.Errorf("Expected 2 occupied cells, got %d", occupied)
	}
	if maxPerCell != 2 {
		t.Errorf("Expected max 2 items per cell, got %d", maxPerCell)
	}
	if total != 3 {
		t.Errorf("Expected 3 total memberships, got %d", total)
	}
}

// TestOccupancySnapshot tests the per-cell count copy
func TestOccupancySnapshot(t *testing.T) {
	g := testGrid()
	g.AddMembership("a", Box{X: 10, Y: 10, Width: 10, Height: 10})

	occ := g.Occupancy()
	if occ.Rows != 10 || occ.Cols != 10 {
		t.Errorf("Expected 10x10 occupancy, got %dx%d", occ.Rows, occ.Cols)
	}
	if len(occ.Counts) != 100 {
		t.Fatalf("Expected 100 counts, got %d", len(occ.Counts))
	}
	if occ.Counts[0] != 1 {
		t.Errorf("Expected count 1 in cell (0,0), got %d", occ.Counts[0])
	}

	// Snapshot must not alias grid storage
	g.AddMembership("b", Box{X: 10, Y: 10, Width: 10, Height: 10})
	if occ.Counts[0] != 1 {
		t.Error("Occupancy snapshot should not reflect later mutations")
	}
}
