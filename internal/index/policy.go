package index

import "math"

// Tuning constants for the density heuristic. These values are part of
// the index contract; tests depend on the exact clamp bounds and
// density target.
const (
	// TargetItemsPerCell is the desired average occupancy used when
	// deriving a cell size from item density.
	TargetItemsPerCell = 10.0

	// MinCellSize and MaxCellSize clamp the derived cell size.
	MinCellSize = 50.0
	MaxCellSize = 500.0

	// DefaultCellSize is used when there are no items to derive from.
	DefaultCellSize = 100.0
)

// Auto-optimize gates: a rebuild is only worth its cost once the index
// is both large and badly clustered.
const (
	optimizeMinItems   = 1000
	optimizeAvgPerCell = 100.0
	optimizeMaxPerCell = 200
)

// TuningPolicy decides from a stats snapshot whether the index should
// rebuild itself with a recomputed cell size. Extracted as a function
// type so the heuristic can be tested and tuned independently of the
// call site.
type TuningPolicy func(Stats) bool

// DefaultTuningPolicy rebuilds only when the index holds more than 1000
// items AND occupancy is degenerate (average > 100 per occupied cell or
// any single cell above 200).
func DefaultTuningPolicy(s Stats) bool {
	return s.TotalItems > optimizeMinItems &&
		(s.AvgItemsPerOccupiedCell > optimizeAvgPerCell || s.MaxItemsPerCell > optimizeMaxPerCell)
}

// OptimalCellSize derives a cell size from item density:
// targetCellArea = averageItemArea * TargetItemsPerCell, and the cell
// edge is sqrt of that, clamped to [MinCellSize, MaxCellSize].
// An empty item set yields DefaultCellSize.
func OptimalCellSize(items []Item) float64 {
	if len(items) == 0 {
		return DefaultCellSize
	}

	var totalArea float64
	for _, it := range items {
		totalArea += it.Box.Area()
	}
	avgArea := totalArea / float64(len(items))

	size := math.Sqrt(avgArea * TargetItemsPerCell)
	if size < MinCellSize {
		size = MinCellSize
	}
	if size > MaxCellSize {
		size = MaxCellSize
	}
	return size
}

// effectiveCellSize substitutes the computed default for an invalid
// requested size. Invalid configuration is resolved here, never
// propagated as an error.
func effectiveCellSize(requested float64, items []Item) float64 {
	if requested > 0 {
		return requested
	}
	return OptimalCellSize(items)
}
