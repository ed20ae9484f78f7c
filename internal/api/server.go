package api

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"canvas-index/internal/config"
)

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with a WebSocket hub pushing index
// stats and mutation events to subscribers.
type Server struct {
	index       IndexInterface
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
}

// NewServer creates a new API server with default production configuration.
//
// IMPORTANT: Background workers do NOT start until Start() is called.
// This enables testing by allowing the server to be constructed without
// starting goroutines or opening network listeners.
//
// For testing HTTP endpoints without WebSocket support, use NewRouter() directly.
func NewServer(idx IndexInterface, limits config.ResourceLimits) *Server {
	s := &Server{
		index: idx,
		wsHub: NewWebSocketHub(),
	}

	// Create rate limiter (we track it for cleanup in Stop)
	s.rateLimiter = NewIPRateLimiter(DefaultRateLimitConfig)

	s.router = newRouter(RouterConfig{
		Index:       idx,
		Limits:      limits,
		RateLimiter: s.rateLimiter,
	}, s.wsHub)

	// WebSocket route needs the hub instance, so it can't be part of
	// the generic newRouter factory.
	s.router.Get("/ws", s.handleWS)

	return s
}

// Start begins the HTTP server AND starts background workers.
// This is the ONLY method that starts goroutines or opens network listeners.
//
// Call this method only once. To stop the server, signal the process.
func (s *Server) Start(addr string) error {
	// Start background workers NOW, not in constructor
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(s.index)

	log.Printf("🗺️  Index API starting on %s", addr)
	log.Printf("📊 Heatmap: http://localhost%s/api/index/heatmap.png", addr)

	return http.ListenAndServe(addr, s.router)
}

// Router returns the HTTP handler for use with httptest.
// Use this in integration tests instead of calling Start().
//
// Example:
//
//	server := api.NewServer(mgr, config.DefaultLimits())
//	ts := httptest.NewServer(server.Router())
//	defer ts.Close()
//	resp, _ := http.Get(ts.URL + "/api/index/stats")
func (s *Server) Router() http.Handler {
	return s.router
}

// Stop performs graceful shutdown of background workers.
// Call this before process exit to ensure clean cleanup.
func (s *Server) Stop() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}
