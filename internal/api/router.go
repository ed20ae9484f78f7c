package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"canvas-index/internal/config"
	"canvas-index/internal/index"
	"canvas-index/internal/index/spatial"
)

// IndexInterface defines the index manager methods used by the API.
// This interface enables mocking for tests without constructing a full
// manager. Keep this minimal - only include methods the API layer
// actually calls.
type IndexInterface interface {
	// AddItem indexes a record; re-adding an id overwrites it
	AddItem(item index.Item) bool
	// RemoveItem drops a record; false for an unknown id
	RemoveItem(id string) bool
	// UpdateItem moves/resizes a record; false for an unknown id
	UpdateItem(id string, box spatial.Box) bool
	// Get returns the current record for id
	Get(id string) (index.Item, bool)
	// Items returns all records sorted by id
	Items() []index.Item
	// Len returns the number of indexed items
	Len() int
	// QueryRegion returns items truly overlapping the region
	QueryRegion(region spatial.Box) []index.Item
	// FindAtPoint returns items containing the point (inclusive)
	FindAtPoint(x, y float64) []index.Item
	// FindNearest returns the closest item within maxDistance
	FindNearest(x, y, maxDistance float64) (index.Item, bool)
	// DetectCollisions returns items overlapping the given item
	DetectCollisions(item index.Item) []index.Item
	// CollidingPairs returns all overlapping id pairs
	CollidingPairs() [][2]string
	// RebuildInPlace rebuilds around the current item set under one
	// lock acquisition; nil bounds keeps the current universe
	RebuildInPlace(bounds *spatial.Box, cellSize float64)
	// AutoOptimize rebuilds when the tuning policy fires
	AutoOptimize() bool
	// UpdateBounds changes universe extent, preserving cell size
	UpdateBounds(bounds spatial.Box)
	// Stats returns the derived statistics snapshot
	Stats() index.Stats
	// Occupancy returns per-cell item counts for the heatmap
	Occupancy() spatial.Occupancy
	// Bounds returns the current universe rectangle
	Bounds() spatial.Box
	// CellSize returns the current cell edge length
	CellSize() float64
}

// RouterConfig contains all dependencies needed to construct the HTTP
// router. This struct is designed for dependency injection and
// testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Index: mgr,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Index is the spatial index manager (required)
	Index IndexInterface

	// Limits caps request sizes and result counts. Zero values fall
	// back to config.DefaultLimits().
	Limits config.ResourceLimits

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses
	// DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses the default origins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful
	// for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler dependencies for the router.
type routerHandlers struct {
	index  IndexInterface
	limits config.ResourceLimits
	hub    *WebSocketHub // nil when running without the hub
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - it has no side effects:
//   - No goroutines are started
//   - No network listeners are opened
//   - No background workers are launched
//
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	return newRouter(cfg, nil)
}

func newRouter(cfg RouterConfig, hub *WebSocketHub) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	// CORS configuration
	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	limits := cfg.Limits
	if limits.MaxItems == 0 {
		limits = config.DefaultLimits()
	}
	if limits.MaxQueryDistance <= 0 {
		limits.MaxQueryDistance = config.DefaultLimits().MaxQueryDistance
	}

	h := &routerHandlers{
		index:  cfg.Index,
		limits: limits,
		hub:    hub,
	}

	// API routes
	r.Route("/api/index", func(r chi.Router) {
		// Item management
		r.Get("/items", h.handleListItems)
		r.Post("/items", h.handleAddItem)
		r.Post("/items/batch", h.handleBatchAdd)
		r.Get("/items/{id}", h.handleGetItem)
		r.Put("/items/{id}", h.handleUpdateItem)
		r.Delete("/items/{id}", h.handleRemoveItem)

		// Queries
		r.Get("/query/region", h.handleQueryRegion)
		r.Get("/query/point", h.handleQueryPoint)
		r.Get("/query/nearest", h.handleQueryNearest)
		r.Get("/collisions", h.handleCollidingPairs)
		r.Get("/collisions/{id}", h.handleCollisions)

		// Stats and tuning
		r.Get("/stats", h.handleGetStats)
		r.Post("/rebuild", h.handleRebuild)
		r.Post("/optimize", h.handleOptimize)
		r.Post("/bounds", h.handleUpdateBounds)

		// Debug visualization
		r.Get("/heatmap.png", h.handleHeatmap)
	})

	return r
}
