package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/city-enrollment-map/internal/observability"
	"github.com/couchcryptid/city-enrollment-map/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Views computes the data behind the map and the program charts.
type Views interface {
	MapView(ctx context.Context, req pipeline.MapRequest) (pipeline.MapView, error)
	ProgramCharts(ctx context.Context, city string) (pipeline.ProgramCharts, error)
}

// Server exposes the map API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	views      Views
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /api/map, /api/map.geojson,
// /api/cities/{name}/programs, /healthz, /readyz, and /metrics routes.
func NewServer(addr string, views Views, ready sharedobs.ReadinessChecker, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		views:   views,
		metrics: metrics,
		logger:  logger,
	}

	mux.HandleFunc("GET /api/map", s.handleMap)
	mux.HandleFunc("GET /api/map.geojson", s.handleMapGeoJSON)
	mux.HandleFunc("GET /api/cities/{name}/programs", s.handlePrograms)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpServer.Handler = requestID(logRequests(logger, mux))
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
