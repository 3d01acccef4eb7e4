package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/skyline-va/crewmap/internal/airport"
	"github.com/skyline-va/crewmap/internal/auth"
	"github.com/skyline-va/crewmap/internal/health"
	"github.com/skyline-va/crewmap/internal/httputil"
	"github.com/skyline-va/crewmap/internal/metrics"
)

// Resolver resolves ICAO codes to airport records.
type Resolver interface {
	Lookup(ctx context.Context, code string) (airport.Record, error)
}

// DatasetCache is the remote dataset slot exposed for status and forced refresh.
type DatasetCache interface {
	Get() *airport.Dataset
	State() airport.State
	Age() (time.Duration, bool)
	Refresh(ctx context.Context) (*airport.Dataset, error)
}

// Config holds the server settings read from the environment.
type Config struct {
	Addr           string
	Auth           auth.Config
	TrustProxy     bool
	RouteCacheSize int
	// RefreshInterval is the minimum spacing between forced dataset refreshes.
	RefreshInterval time.Duration
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server. ready reports whether the
// static airport table is loaded.
func NewServer(cfg Config, logger *slog.Logger, resolver Resolver, datasets DatasetCache, ready func() bool) (*Server, error) {
	routes, err := newRouteCache(cfg.RouteCacheSize)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(ready))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/airports/dataset", datasetStatusHandler(datasets))
	mux.HandleFunc("POST /api/v1/airports/dataset/refresh", refreshHandler(logger, datasets, newRefreshLimiter(cfg.RefreshInterval)))
	mux.HandleFunc("GET /api/v1/airports/{icao}", airportHandler(logger, resolver))
	mux.HandleFunc("GET /api/v1/route", airportRouteHandler(logger, resolver, routes))
	mux.HandleFunc("GET /api/v1/geo/route", coordinateRouteHandler(routes))

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(cfg.Auth)(handler)
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			// Lookups may wait on a dataset fetch bounded by airport.FetchTimeout.
			WriteTimeout: airport.FetchTimeout + 5*time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}, nil
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for probe and scrape paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
