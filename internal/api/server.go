// Package api serves the simulation over HTTP.
package api

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/auth"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/catalog"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/health"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/httputil"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/metrics"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/propagation"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/sim"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/stream"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/tle"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/trail"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/transform"
)

// Simulation is the running tick loop as seen by the API.
type Simulation interface {
	Latest() *sim.Scene
	Input() *sim.InputBuffer
}

// Deps are the components the routes read and control. Catalog, Refresher,
// History, Trail and Web are optional.
type Deps struct {
	Sim        Simulation
	Elements   *tle.Store
	Propagator *propagation.Propagator
	Model      string // propagation model for pass prediction
	Observer   transform.ObserverPosition
	Catalog    *catalog.Store
	Refresher  *catalog.Refresher
	History    *catalog.History
	Trail      *trail.Cache
	Stream     *stream.Handler
	Health     *health.Checker
	Resolver   *httputil.Resolver
	Web        fs.FS
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, deps Deps) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewHandler(logger, authCfg, deps),
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// NewHandler builds the routed handler with its middleware chain.
func NewHandler(logger *slog.Logger, authCfg auth.Config, deps Deps) http.Handler {
	if deps.Health == nil {
		deps.Health = health.NewChecker()
	}
	h := &handlers{deps: deps, logger: logger.With("component", "api")}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", deps.Health.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/scene", h.scene)
	mux.HandleFunc("POST /api/v1/input", h.input)
	mux.HandleFunc("GET /api/v1/camera", h.camera)
	mux.HandleFunc("GET /api/v1/elements", h.elements)
	mux.HandleFunc("GET /api/v1/elements/{norad_id}", h.element)
	mux.HandleFunc("GET /api/v1/propagate", h.propagate)
	mux.HandleFunc("GET /api/v1/passes", h.passes)
	mux.HandleFunc("GET /api/v1/trail", h.trail)
	mux.HandleFunc("GET /api/v1/catalog", h.catalog)
	mux.HandleFunc("POST /api/v1/catalog/refresh", h.catalogRefresh)
	mux.HandleFunc("GET /api/v1/catalog/history", h.catalogHistory)
	mux.HandleFunc("GET /api/v1/catalog/history/{id}", h.catalogSnapshot)
	if deps.Stream != nil {
		mux.HandleFunc("GET /api/v1/stream/scene", deps.Stream.HandleScene)
	}
	if deps.Web != nil {
		mux.Handle("GET /", http.FileServerFS(deps.Web))
	}

	// Outermost first: metrics, request log, auth, routes.
	return metrics.Middleware(
		requestLog(logger, deps.Resolver)(
			auth.Middleware(authCfg)(mux)))
}

// ListenAndServe serves until Shutdown.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections and waits for active requests,
// open scene streams included, until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
