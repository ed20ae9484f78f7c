package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"canvas-index/internal/index"
	"canvas-index/internal/index/spatial"
)

// Handler methods for routerHandlers
// These are used by both the standalone router (for testing) and the
// full Server.

func (h *routerHandlers) handleListItems(w http.ResponseWriter, r *http.Request) {
	items := h.index.Items()
	if len(items) > h.limits.MaxQueryResults {
		items = items[:h.limits.MaxQueryResults]
	}
	writeJSON(w, map[string]interface{}{
		"items": items,
		"count": h.index.Len(),
	})
}

func (h *routerHandlers) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var item index.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if item.ID == "" {
		writeError(w, "Item id is required", http.StatusBadRequest)
		return
	}
	if item.Box.Width < 0 || item.Box.Height < 0 {
		writeError(w, "Negative width or height", http.StatusBadRequest)
		return
	}

	// HARD CAP: Prevent DoS via item flooding
	if _, exists := h.index.Get(item.ID); !exists && h.index.Len() >= h.limits.MaxItems {
		writeError(w, "Item limit reached", http.StatusServiceUnavailable)
		return
	}

	h.index.AddItem(item)
	RecordMutation("add")
	h.notifyMutation("add", item.ID)
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleBatchAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []index.Item `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if len(req.Items) > h.limits.MaxBatchSize {
		req.Items = req.Items[:h.limits.MaxBatchSize]
	}

	count := 0
	for _, item := range req.Items {
		if item.ID == "" || item.Box.Width < 0 || item.Box.Height < 0 {
			continue
		}
		if _, exists := h.index.Get(item.ID); !exists && h.index.Len() >= h.limits.MaxItems {
			break
		}
		if h.index.AddItem(item) {
			RecordMutation("add")
			count++
		}
	}

	h.notifyMutation("batch", "")
	writeJSON(w, map[string]interface{}{
		"success": true,
		"count":   count,
	})
}

func (h *routerHandlers) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, ok := h.index.Get(id)
	if !ok {
		writeError(w, "Item not found", http.StatusNotFound)
		return
	}
	writeJSON(w, item)
}

func (h *routerHandlers) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var box spatial.Box
	if err := json.NewDecoder(r.Body).Decode(&box); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if box.Width < 0 || box.Height < 0 {
		writeError(w, "Negative width or height", http.StatusBadRequest)
		return
	}

	if !h.index.UpdateItem(id, box) {
		writeError(w, "Item not found", http.StatusNotFound)
		return
	}
	RecordMutation("update")
	h.notifyMutation("update", id)
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.index.RemoveItem(id) {
		writeError(w, "Item not found", http.StatusNotFound)
		return
	}
	RecordMutation("remove")
	h.notifyMutation("remove", id)
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleQueryRegion(w http.ResponseWriter, r *http.Request) {
	region, ok := boxFromQuery(r)
	if !ok {
		writeError(w, "x, y, width, height query params required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	items := h.index.QueryRegion(region)
	RecordQuery("region", time.Since(start))

	writeItems(w, items, h.limits.MaxQueryResults)
}

func (h *routerHandlers) handleQueryPoint(w http.ResponseWriter, r *http.Request) {
	x, okX := floatParam(r, "x")
	y, okY := floatParam(r, "y")
	if !okX || !okY {
		writeError(w, "x and y query params required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	items := h.index.FindAtPoint(x, y)
	RecordQuery("point", time.Since(start))

	writeItems(w, items, h.limits.MaxQueryResults)
}

func (h *routerHandlers) handleQueryNearest(w http.ResponseWriter, r *http.Request) {
	x, okX := floatParam(r, "x")
	y, okY := floatParam(r, "y")
	if !okX || !okY {
		writeError(w, "x and y query params required", http.StatusBadRequest)
		return
	}
	maxDistance, ok := floatParam(r, "maxDistance")
	if !ok {
		maxDistance = 500 // generous default search radius
	}
	// Clamp client-supplied distances; an unbounded radius turns one
	// request into a grid-wide walk under the index read lock.
	if maxDistance > h.limits.MaxQueryDistance {
		maxDistance = h.limits.MaxQueryDistance
	}

	start := time.Now()
	item, found := h.index.FindNearest(x, y, maxDistance)
	RecordQuery("nearest", time.Since(start))

	if !found {
		writeJSON(w, map[string]interface{}{"item": nil})
		return
	}
	writeJSON(w, map[string]interface{}{"item": item})
}

func (h *routerHandlers) handleCollisions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, ok := h.index.Get(id)
	if !ok {
		writeError(w, "Item not found", http.StatusNotFound)
		return
	}

	start := time.Now()
	items := h.index.DetectCollisions(item)
	RecordQuery("collisions", time.Since(start))

	writeItems(w, items, h.limits.MaxQueryResults)
}

func (h *routerHandlers) handleCollidingPairs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	pairs := h.index.CollidingPairs()
	RecordQuery("pairs", time.Since(start))

	if len(pairs) > h.limits.MaxQueryResults {
		pairs = pairs[:h.limits.MaxQueryResults]
	}
	writeJSON(w, map[string]interface{}{
		"pairs": pairs,
		"count": len(pairs),
	})
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.index.Stats()
	UpdateIndexGauges(stats.TotalItems, stats.OccupiedCells)
	writeJSON(w, map[string]interface{}{
		"stats":    stats,
		"bounds":   h.index.Bounds(),
		"cellSize": h.index.CellSize(),
	})
}

func (h *routerHandlers) handleRebuild(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Bounds   *spatial.Box `json:"bounds"`
		CellSize float64      `json:"cellSize"`
	}
	if r.Body != nil {
		// Body is optional; an empty rebuild re-tunes in place
		json.NewDecoder(r.Body).Decode(&req)
	}

	h.index.RebuildInPlace(req.Bounds, req.CellSize)
	RecordMutation("rebuild")
	RecordRebuild()
	h.notifyMutation("rebuild", "")
	writeJSON(w, map[string]interface{}{
		"success":  true,
		"cellSize": h.index.CellSize(),
	})
}

func (h *routerHandlers) handleOptimize(w http.ResponseWriter, r *http.Request) {
	changed := h.index.AutoOptimize()
	if changed {
		RecordMutation("optimize")
		RecordRebuild()
		h.notifyMutation("optimize", "")
	}
	writeJSON(w, map[string]interface{}{
		"changed":  changed,
		"cellSize": h.index.CellSize(),
	})
}

func (h *routerHandlers) handleUpdateBounds(w http.ResponseWriter, r *http.Request) {
	var bounds spatial.Box
	if err := json.NewDecoder(r.Body).Decode(&bounds); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if bounds.Width < 0 || bounds.Height < 0 {
		writeError(w, "Negative width or height", http.StatusBadRequest)
		return
	}

	h.index.UpdateBounds(bounds)
	RecordMutation("bounds")
	RecordRebuild()
	h.notifyMutation("bounds", "")
	writeJSON(w, map[string]bool{"success": true})
}

// notifyMutation pushes a mutation event to WebSocket subscribers when
// the hub is attached (full Server); a bare router skips it.
func (h *routerHandlers) notifyMutation(op, id string) {
	if h.hub == nil {
		return
	}
	h.hub.Broadcast("index:mutation", map[string]interface{}{
		"op": op,
		"id": id,
	})
}

// Helper functions (package-level for reuse)

func writeItems(w http.ResponseWriter, items []index.Item, limit int) {
	if len(items) > limit {
		items = items[:limit]
	}
	if items == nil {
		items = []index.Item{}
	}
	writeJSON(w, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func floatParam(r *http.Request, name string) (float64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func boxFromQuery(r *http.Request) (spatial.Box, bool) {
	x, okX := floatParam(r, "x")
	y, okY := floatParam(r, "y")
	w, okW := floatParam(r, "width")
	h, okH := floatParam(r, "height")
	if !okX || !okY || !okW || !okH || w < 0 || h < 0 {
		return spatial.Box{}, false
	}
	return spatial.Box{X: x, Y: y, Width: w, Height: h}, true
}
