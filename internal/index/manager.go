package index

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"canvas-index/internal/index/spatial"
)

// Manager is the index façade. It validates inputs, maintains the grid
// and registry as one atomic unit, executes queries, and applies the
// rebuild / density-heuristic policy.
//
// A single RWMutex guards the grid + registry + stats triple. Guarding
// them independently would open a window where a reader observes grid
// membership for an item whose registry entry is not yet updated.
// Mutations take the write lock for the full update; queries take the
// read lock. Query latency is stored in an atomic so read-locked
// queries never write shared state.
type Manager struct {
	mu    sync.RWMutex
	grid  *spatial.Grid
	items *registry
	stats Stats

	// lastQueryMs holds math.Float64bits of the last query duration.
	lastQueryMs atomic.Uint64

	policy  TuningPolicy
	sweep   *spatial.Sweep
	journal *Journal // optional, best-effort
}

// Config configures a Manager.
type Config struct {
	// Bounds is the universe rectangle the grid partitions.
	Bounds spatial.Box

	// CellSize is the cell edge length. Values <= 0 are replaced by
	// the computed default (DefaultCellSize for an empty index).
	CellSize float64

	// Policy decides when AutoOptimize rebuilds. Nil selects
	// DefaultTuningPolicy.
	Policy TuningPolicy

	// Journal receives mutation records when non-nil.
	Journal *Journal
}

// NewManager creates an index over the given universe.
func NewManager(cfg Config) *Manager {
	policy := cfg.Policy
	if policy == nil {
		policy = DefaultTuningPolicy
	}

	m := &Manager{
		grid:    spatial.NewGrid(cfg.Bounds, effectiveCellSize(cfg.CellSize, nil)),
		items:   newRegistry(),
		policy:  policy,
		sweep:   spatial.NewSweep(64),
		journal: cfg.Journal,
	}
	m.recomputeStats()
	return m
}

// =============================================================================
// MUTATIONS
// =============================================================================

// AddItem indexes a record. Re-adding an existing id overwrites its
// geometry (the stale membership is cleared first). Returns false only
// for an empty id.
func (m *Manager) AddItem(item Item) bool {
	if item.ID == "" {
		return false
	}

	m.mu.Lock()
	if old, ok := m.items.get(item.ID); ok {
		m.grid.UpdateMembership(item.ID, old, item.Box)
	} else {
		m.grid.AddMembership(item.ID, item.Box)
	}
	m.items.put(item.ID, item.Box)
	m.recomputeStats()
	m.journalEmit(OpAdd, item.ID, item.Box)
	m.mu.Unlock()
	return true
}

// RemoveItem drops a record. Returns false for an unknown id, with no
// state change.
func (m *Manager) RemoveItem(id string) bool {
	m.mu.Lock()
	old, ok := m.items.get(id)
	if !ok {
		m.mu.Unlock()
		return false
	}
	m.grid.RemoveMembershipAt(id, old)
	m.items.remove(id)
	m.recomputeStats()
	m.journalEmit(OpRemove, id, old)
	m.mu.Unlock()
	return true
}

// UpdateItem moves or resizes a record. Returns false for an unknown id
// rather than inserting.
func (m *Manager) UpdateItem(id string, newBox spatial.Box) bool {
	m.mu.Lock()
	old, ok := m.items.get(id)
	if !ok {
		m.mu.Unlock()
		return false
	}
	m.grid.UpdateMembership(id, old, newBox)
	m.items.put(id, newBox)
	m.recomputeStats()
	m.journalEmit(OpUpdate, id, newBox)
	m.mu.Unlock()
	return true
}

// Rebuild replaces the grid and registry wholesale. A cellSize <= 0
// triggers the density heuristic (OptimalCellSize over items).
func (m *Manager) Rebuild(items []Item, bounds spatial.Box, cellSize float64) {
	m.mu.Lock()
	m.rebuildLocked(items, bounds, cellSize)
	m.journalEmitCount(OpRebuild, len(items))
	m.mu.Unlock()
}

// RebuildInPlace rebuilds around the current item set. Snapshot and
// rebuild happen under one lock acquisition, so no concurrent mutation
// can slip between them and be lost. A nil bounds keeps the current
// universe; cellSize <= 0 triggers the density heuristic.
func (m *Manager) RebuildInPlace(bounds *spatial.Box, cellSize float64) {
	m.mu.Lock()
	b := m.grid.Bounds()
	if bounds != nil {
		b = *bounds
	}
	items := m.items.items()
	m.rebuildLocked(items, b, cellSize)
	m.journalEmitCount(OpRebuild, len(items))
	m.mu.Unlock()
}

func (m *Manager) rebuildLocked(items []Item, bounds spatial.Box, cellSize float64) {
	m.grid = spatial.NewGrid(bounds, effectiveCellSize(cellSize, items))
	m.items = newRegistry()

	for _, it := range items {
		if it.ID == "" {
			continue
		}
		if old, ok := m.items.get(it.ID); ok {
			// Duplicate id in the input: overwrite, don't duplicate.
			m.grid.UpdateMembership(it.ID, old, it.Box)
		} else {
			m.grid.AddMembership(it.ID, it.Box)
		}
		m.items.put(it.ID, it.Box)
	}
	m.recomputeStats()
}

// AutoOptimize rebuilds with a recomputed cell size when the tuning
// policy fires; otherwise it is a no-op returning false. The item set
// and universe bounds are preserved; only the cell geometry changes.
func (m *Manager) AutoOptimize() bool {
	m.mu.Lock()
	if !m.policy(m.statsLocked()) {
		m.mu.Unlock()
		return false
	}

	items := m.items.items()
	bounds := m.grid.Bounds()
	m.rebuildLocked(items, bounds, 0) // 0 triggers the density heuristic
	m.journalEmitCount(OpOptimize, len(items))
	m.mu.Unlock()
	return true
}

// UpdateBounds changes the universe extent, preserving the item set and
// the current cell size.
func (m *Manager) UpdateBounds(bounds spatial.Box) {
	m.mu.Lock()
	items := m.items.items()
	cellSize := m.grid.CellSize()
	m.rebuildLocked(items, bounds, cellSize)
	m.journalEmitCount(OpBounds, len(items))
	m.mu.Unlock()
}

// =============================================================================
// QUERIES
// =============================================================================

// QueryRegion returns every item whose box truly overlaps region, using
// the exclusive overlap test (boxes touching only at an edge do not
// count). Cell-level overlap is a superset test; candidates are
// narrowed against the registry geometry. Results are sorted by id.
func (m *Manager) QueryRegion(region spatial.Box) []Item {
	start := time.Now()

	m.mu.RLock()
	seen := make(map[string]struct{})
	var out []Item
	for _, c := range m.grid.IntersectingCells(region) {
		for id := range m.grid.CellItems(c) {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			box, ok := m.items.get(id)
			if ok && box.Intersects(region) {
				out = append(out, Item{ID: id, Box: box})
			}
		}
	}
	m.mu.RUnlock()

	sortItems(out)
	m.recordQuery(start)
	return out
}

// FindAtPoint returns every item whose box contains (x, y) with the
// inclusive boundary test: a point exactly on an edge counts. Results
// are sorted by id. A point outside the universe yields no results.
func (m *Manager) FindAtPoint(x, y float64) []Item {
	start := time.Now()

	m.mu.RLock()
	var out []Item
	if c, ok := m.grid.CellCoords(x, y); ok {
		for id := range m.grid.CellItems(c) {
			box, ok := m.items.get(id)
			if ok && box.ContainsPoint(x, y) {
				out = append(out, Item{ID: id, Box: box})
			}
		}
	}
	m.mu.RUnlock()

	sortItems(out)
	m.recordQuery(start)
	return out
}

// FindNearest returns the closest item to (x, y) within maxDistance,
// measured as the clamped point-to-rectangle distance (zero inside the
// rectangle). Cells are examined in expanding Chebyshev rings around
// the cell containing the point; the search stops once a candidate has
// been found and minDistance <= ring * cellSize, the guaranteed lower
// bound on anything undiscovered at larger radii.
//
// The early exit is a heuristic, not an exact nearest-neighbor
// guarantee: when items cluster unevenly across ring boundaries it can
// return a result other than the true minimum. This matches the
// documented behavior and is kept deliberately.
//
// Returns ok=false when the point lies outside the universe, no
// candidate is within maxDistance, or the radius cap
// ceil(maxDistance/cellSize) is exhausted. The cap is additionally
// clamped to the grid extent: rings beyond max(rows, cols) contain no
// in-grid cells, so walking them would burn time under the read lock
// without ever finding anything.
func (m *Manager) FindNearest(x, y, maxDistance float64) (Item, bool) {
	start := time.Now()
	defer m.recordQuery(start)

	m.mu.RLock()
	defer m.mu.RUnlock()

	startCell, ok := m.grid.CellCoords(x, y)
	if !ok {
		return Item{}, false
	}

	cellSize := m.grid.CellSize()
	rows, cols := m.grid.Dimensions()
	maxRadius := max(rows, cols)
	// Compare in float space before converting: a huge maxDistance
	// would overflow the int conversion.
	if r := maxDistance / cellSize; r < float64(maxRadius) {
		maxRadius = int(math.Ceil(r))
	}

	var nearest Item
	found := false
	minDistance := maxDistance

	for radius := 0; radius <= maxRadius; radius++ {
		m.grid.RingCells(startCell, radius, func(c spatial.Cell) {
			for id := range m.grid.CellItems(c) {
				box, ok := m.items.get(id)
				if !ok {
					continue
				}
				d := box.DistanceToPoint(x, y)
				if d < minDistance {
					minDistance = d
					nearest = Item{ID: id, Box: box}
					found = true
				}
			}
		})

		if found && minDistance <= float64(radius)*cellSize {
			break
		}
	}

	if !found {
		return Item{}, false
	}
	return nearest, true
}

// DetectCollisions returns every indexed item whose box overlaps the
// given item's box, excluding the item itself. Collision is symmetric
// by construction of the overlap test. Results are sorted by id.
func (m *Manager) DetectCollisions(item Item) []Item {
	start := time.Now()

	m.mu.RLock()
	seen := make(map[string]struct{})
	var out []Item
	for _, c := range m.grid.IntersectingCells(item.Box) {
		for id := range m.grid.CellItems(c) {
			if id == item.ID {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			box, ok := m.items.get(id)
			if ok && box.Intersects(item.Box) {
				out = append(out, Item{ID: id, Box: box})
			}
		}
	}
	m.mu.RUnlock()

	sortItems(out)
	m.recordQuery(start)
	return out
}

// CollidingPairs runs a sweep-and-prune broad phase over every indexed
// box and returns all truly overlapping id pairs. Each pair appears
// once with its ids in ascending order, and pairs are sorted for
// deterministic output.
func (m *Manager) CollidingPairs() [][2]string {
	start := time.Now()

	m.mu.Lock() // the sweep reuses internal buffers; exclusive access
	items := m.items.items()
	boxes := make([]spatial.Box, len(items))
	for i, it := range items {
		boxes[i] = it.Box
	}

	var out [][2]string
	for _, p := range m.sweep.CandidatePairs(boxes) {
		a, b := items[p.A], items[p.B]
		if !a.Box.Intersects(b.Box) {
			continue
		}
		if a.ID > b.ID {
			a, b = b, a
		}
		out = append(out, [2]string{a.ID, b.ID})
	}
	m.mu.Unlock()

	sortPairs(out)
	m.recordQuery(start)
	return out
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Get returns the current record for id.
func (m *Manager) Get(id string) (Item, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	box, ok := m.items.get(id)
	if !ok {
		return Item{}, false
	}
	return Item{ID: id, Box: box}, true
}

// Len returns the number of indexed items.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.items.len()
}

// Items returns a snapshot of all records sorted by id.
func (m *Manager) Items() []Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.items.items()
}

// Bounds returns the current universe rectangle.
func (m *Manager) Bounds() spatial.Box {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.grid.Bounds()
}

// CellSize returns the current cell edge length.
func (m *Manager) CellSize() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.grid.CellSize()
}

// Stats returns the current derived statistics snapshot.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statsLocked()
}

// Occupancy returns a copy of the per-cell item counts, for the
// heatmap renderer and debugging.
func (m *Manager) Occupancy() spatial.Occupancy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.grid.Occupancy()
}

// =============================================================================
// INTERNAL
// =============================================================================

// statsLocked folds the atomic query latency into the guarded stats.
// Callers must hold at least the read lock.
func (m *Manager) statsLocked() Stats {
	s := m.stats
	s.LastQueryMillis = math.Float64frombits(m.lastQueryMs.Load())
	return s
}

// recomputeStats derives occupancy counters from the grid and registry.
// Callers must hold the write lock.
func (m *Manager) recomputeStats() {
	rows, cols := m.grid.Dimensions()
	occupied, maxPerCell, totalMemberships := m.grid.Scan()

	avg := 0.0
	if occupied > 0 {
		avg = float64(totalMemberships) / float64(occupied)
	}

	m.stats = Stats{
		TotalItems:              m.items.len(),
		TotalCells:              rows * cols,
		OccupiedCells:           occupied,
		AvgItemsPerOccupiedCell: avg,
		MaxItemsPerCell:         maxPerCell,
		MemoryEstimateBytes:     rows * cols * 8, // rough estimate
	}
}

func (m *Manager) recordQuery(start time.Time) {
	ms := float64(time.Since(start)) / float64(time.Millisecond)
	m.lastQueryMs.Store(math.Float64bits(ms))
}

func (m *Manager) journalEmit(op Op, id string, box spatial.Box) {
	if m.journal != nil {
		m.journal.Emit(Record{Op: op, ItemID: id, Box: box})
	}
}

func (m *Manager) journalEmitCount(op Op, count int) {
	if m.journal != nil {
		m.journal.Emit(Record{Op: op, Count: count})
	}
}
