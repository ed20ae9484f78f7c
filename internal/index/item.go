// Package index implements the canvas spatial index: a grid-partitioned
// index over axis-aligned rectangles answering region, point, nearest
// and collision queries, with heuristic self-tuning of the cell size.
package index

import (
	"sort"

	"canvas-index/internal/index/spatial"
)

// Item is one indexed rectangle. IDs are unique strings; re-adding an
// existing id overwrites its geometry, it never duplicates.
type Item struct {
	ID  string      `json:"id"`
	Box spatial.Box `json:"box"`
}

// Stats is a derived snapshot of index occupancy. It is recomputed from
// the grid and registry after each mutation, never mutated on its own.
type Stats struct {
	TotalItems              int     `json:"totalItems"`
	TotalCells              int     `json:"totalCells"`
	OccupiedCells           int     `json:"occupiedCells"`
	AvgItemsPerOccupiedCell float64 `json:"avgItemsPerOccupiedCell"`
	MaxItemsPerCell         int     `json:"maxItemsPerCell"`
	MemoryEstimateBytes     int     `json:"memoryEstimateBytes"`
	LastQueryMillis         float64 `json:"lastQueryMillis"`
}

// sortItems orders query results by id. Cell id sets iterate in map
// order; sorting keeps query output reproducible.
func sortItems(items []Item) {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}

func sortPairs(pairs [][2]string) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
}
