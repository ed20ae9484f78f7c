// Package spatial provides the cell-grid partition and broad-phase
// structures backing the canvas index.
//
// The grid maps rectangles to ranges of fixed-size cells and maintains
// per-cell id sets. It knows nothing about item geometry beyond what is
// passed in per call; callers keep the authoritative id -> box mapping.
package spatial

import "math"

// Cell identifies one grid cell by row and column.
type Cell struct {
	Row, Col int
}

// Grid partitions a universe rectangle into fixed-size square cells.
// Each cell holds the set of item ids whose box overlaps it; a box that
// spans several cells appears in all of them (many-to-many membership).
//
// Cells are stored in row-major order (cells[row*cols+col]).
type Grid struct {
	bounds   Box
	cellSize float64
	rows     int
	cols     int
	cells    []map[string]struct{}
}

// NewGrid creates a grid over the given universe bounds.
// cellSize must be > 0; callers with an invalid size are expected to
// substitute a computed default before construction.
//
// A universe with zero width or height yields a degenerate grid with
// zero rows or columns; all operations against it are no-ops and all
// queries return empty results.
func NewGrid(bounds Box, cellSize float64) *Grid {
	cols := int(math.Ceil(bounds.Width / cellSize))
	rows := int(math.Ceil(bounds.Height / cellSize))
	if cols < 0 {
		cols = 0
	}
	if rows < 0 {
		rows = 0
	}

	cells := make([]map[string]struct{}, rows*cols)
	for i := range cells {
		cells[i] = make(map[string]struct{})
	}

	return &Grid{
		bounds:   bounds,
		cellSize: cellSize,
		rows:     rows,
		cols:     cols,
		cells:    cells,
	}
}

// Bounds returns the universe rectangle.
func (g *Grid) Bounds() Box { return g.bounds }

// CellSize returns the cell edge length.
func (g *Grid) CellSize() float64 { return g.cellSize }

// Dimensions returns the grid dimensions.
func (g *Grid) Dimensions() (rows, cols int) { return g.rows, g.cols }

// CellCoords returns the cell containing the point (x, y), or ok=false
// if the point lies outside the universe.
func (g *Grid) CellCoords(x, y float64) (Cell, bool) {
	col := int(math.Floor((x - g.bounds.X) / g.cellSize))
	row := int(math.Floor((y - g.bounds.Y) / g.cellSize))
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return Cell{}, false
	}
	return Cell{Row: row, Col: col}, true
}

// IntersectingCells returns every cell whose rectangle overlaps box,
// clamped to the grid. The out-of-universe portion of a box is silently
// dropped; a box entirely outside the universe yields no cells.
//
// Each call allocates a fresh slice, so concurrent read-locked queries
// never share state through the grid.
func (g *Grid) IntersectingCells(box Box) []Cell {
	startCol := int(math.Floor((box.X - g.bounds.X) / g.cellSize))
	endCol := int(math.Ceil((box.X + box.Width - g.bounds.X) / g.cellSize))
	startRow := int(math.Floor((box.Y - g.bounds.Y) / g.cellSize))
	endRow := int(math.Ceil((box.Y + box.Height - g.bounds.Y) / g.cellSize))

	if startCol < 0 {
		startCol = 0
	}
	if endCol > g.cols {
		endCol = g.cols
	}
	if startRow < 0 {
		startRow = 0
	}
	if endRow > g.rows {
		endRow = g.rows
	}
	if startRow >= endRow || startCol >= endCol {
		return nil
	}

	cells := make([]Cell, 0, (endRow-startRow)*(endCol-startCol))
	for row := startRow; row < endRow; row++ {
		for col := startCol; col < endCol; col++ {
			cells = append(cells, Cell{Row: row, Col: col})
		}
	}
	return cells
}

// AddMembership inserts id into every cell overlapped by box.
func (g *Grid) AddMembership(id string, box Box) {
	for _, c := range g.IntersectingCells(box) {
		g.cells[c.Row*g.cols+c.Col][id] = struct{}{}
	}
}

// RemoveMembership removes id from every cell. This is a full scan over
// all cells; when the previous box is known, UpdateMembership is the
// required path since it touches only the affected cells.
func (g *Grid) RemoveMembership(id string) {
	for i := range g.cells {
		delete(g.cells[i], id)
	}
}

// RemoveMembershipAt removes id from exactly the cells overlapped by
// box, avoiding the full scan of RemoveMembership.
func (g *Grid) RemoveMembershipAt(id string, box Box) {
	for _, c := range g.IntersectingCells(box) {
		delete(g.cells[c.Row*g.cols+c.Col], id)
	}
}

// UpdateMembership moves id from the cells of oldBox to the cells of
// newBox. Strictly cheaper than RemoveMembership + AddMembership when
// the old geometry is known.
func (g *Grid) UpdateMembership(id string, oldBox, newBox Box) {
	g.RemoveMembershipAt(id, oldBox)
	g.AddMembership(id, newBox)
}

// CellItems returns the id set of one cell. The returned map is the
// grid's own storage; callers must not modify or retain it.
func (g *Grid) CellItems(c Cell) map[string]struct{} {
	return g.cells[c.Row*g.cols+c.Col]
}

// RingCells calls fn for every in-bounds cell at Chebyshev distance r
// from center: all cells whose row/col offset satisfies
// max(|dRow|, |dCol|) == r. Ring 0 is the center cell itself.
//
// Only the ring perimeter is walked, so the cost is O(r) per ring
// rather than O(r*r).
func (g *Grid) RingCells(center Cell, r int, fn func(Cell)) {
	visit := func(row, col int) {
		if row >= 0 && row < g.rows && col >= 0 && col < g.cols {
			fn(Cell{Row: row, Col: col})
		}
	}
	if r == 0 {
		visit(center.Row, center.Col)
		return
	}
	for col := center.Col - r; col <= center.Col+r; col++ {
		visit(center.Row-r, col)
		visit(center.Row+r, col)
	}
	for row := center.Row - r + 1; row <= center.Row+r-1; row++ {
		visit(row, center.Col-r)
		visit(row, center.Col+r)
	}
}

// Occupancy is a point-in-time copy of per-cell item counts, used for
// statistics and the heatmap renderer.
type Occupancy struct {
	Rows     int
	Cols     int
	CellSize float64
	Counts   []int // row-major, len = Rows*Cols
}

// Occupancy returns a copy of the current per-cell item counts.
func (g *Grid) Occupancy() Occupancy {
	counts := make([]int, len(g.cells))
	for i, cell := range g.cells {
		counts[i] = len(cell)
	}
	return Occupancy{Rows: g.rows, Cols: g.cols, CellSize: g.cellSize, Counts: counts}
}

// Scan walks all cells and returns occupancy aggregates in one pass.
func (g *Grid) Scan() (occupied, maxPerCell, totalMemberships int) {
	for _, cell := range g.cells {
		n := len(cell)
		if n == 0 {
			continue
		}
		occupied++
		totalMemberships += n
		if n > maxPerCell {
			maxPerCell = n
		}
	}
	return occupied, maxPerCell, totalMemberships
}
