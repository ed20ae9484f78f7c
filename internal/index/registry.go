package index

import (
	"sort"

	"canvas-index/internal/index/spatial"
)

// registry is the id -> box cache mirroring grid membership. Removals
// and incremental updates need the previous geometry to locate the
// cells to clear, so the registry is kept in lock-step with the grid:
// for every id present in any cell, the registry holds the box that
// produced that membership.
//
// The registry is not safe for concurrent use on its own; the Manager
// guards it together with the grid.
type registry struct {
	boxes map[string]spatial.Box
}

func newRegistry() *registry {
	return &registry{boxes: make(map[string]spatial.Box)}
}

func (r *registry) get(id string) (spatial.Box, bool) {
	box, ok := r.boxes[id]
	return box, ok
}

func (r *registry) put(id string, box spatial.Box) {
	r.boxes[id] = box
}

func (r *registry) remove(id string) {
	delete(r.boxes, id)
}

func (r *registry) len() int {
	return len(r.boxes)
}

// items returns all records sorted by id for deterministic output.
func (r *registry) items() []Item {
	out := make([]Item, 0, len(r.boxes))
	for id, box := range r.boxes {
		out = append(out, Item{ID: id, Box: box})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
