package spatial

import "sort"

// Sweep implements a 1-axis sweep-and-prune broad phase over boxes.
// Box intervals are projected onto the X-axis, endpoints are sorted,
// and overlapping intervals become candidate pairs. The caller narrows
// candidates with the exact Box.Intersects test.
//
// With temporal coherence (boxes move little between sweeps), the
// insertion sort approaches O(n). Well-established technique from
// physics engines (Bullet, Box2D).
type Sweep struct {
	endpoints  []sweepEndpoint
	pairs      []Pair
	active     []int32
	useInsSort bool
}

// sweepEndpoint is one end of a box's X interval.
type sweepEndpoint struct {
	value float64
	index int32
	isMin bool
}

// Pair holds the slice indices of two boxes whose X intervals overlap.
type Pair struct {
	A, B int32
}

// NewSweep creates a sweep-and-prune broad phase.
// capacity is used to preallocate buffers.
func NewSweep(capacity int) *Sweep {
	return &Sweep{
		endpoints:  make([]sweepEndpoint, 0, capacity*2),
		pairs:      make([]Pair, 0, capacity),
		active:     make([]int32, 0, capacity/4+1),
		useInsSort: true,
	}
}

// CandidatePairs returns the indices of all boxes whose X intervals
// overlap. The returned slice is reused on subsequent calls.
//
// Candidates are a superset of the truly colliding pairs; the caller
// runs the exact exclusive intersection test as the narrow phase.
func (s *Sweep) CandidatePairs(boxes []Box) []Pair {
	s.pairs = s.pairs[:0]
	s.endpoints = s.endpoints[:0]

	for i, b := range boxes {
		s.endpoints = append(s.endpoints,
			sweepEndpoint{b.X, int32(i), true},
			sweepEndpoint{b.X + b.Width, int32(i), false},
		)
	}

	if s.useInsSort && len(s.endpoints) > 1 {
		// Insertion sort: O(n) for nearly-sorted data (temporal coherence)
		insertionSortEndpoints(s.endpoints)
	} else {
		sort.Slice(s.endpoints, func(i, j int) bool {
			return s.endpoints[i].value < s.endpoints[j].value
		})
	}

	// Sweep: track active intervals
	s.active = s.active[:0]

	for _, ep := range s.endpoints {
		if ep.isMin {
			for _, other := range s.active {
				s.pairs = append(s.pairs, Pair{ep.index, other})
			}
			s.active = append(s.active, ep.index)
		} else {
			for i, idx := range s.active {
				if idx == ep.index {
					// Swap with last and truncate
					s.active[i] = s.active[len(s.active)-1]
					s.active = s.active[:len(s.active)-1]
					break
				}
			}
		}
	}

	return s.pairs
}

// SetInsertionSort toggles the insertion sort optimization.
// When false, falls back to the standard O(n log n) sort.
func (s *Sweep) SetInsertionSort(enabled bool) {
	s.useInsSort = enabled
}

func insertionSortEndpoints(eps []sweepEndpoint) {
	for i := 1; i < len(eps); i++ {
		key := eps[i]
		j := i - 1
		for j >= 0 && eps[j].value > key.value {
			eps[j+1] = eps[j]
			j--
		}
		eps[j+1] = key
	}
}
