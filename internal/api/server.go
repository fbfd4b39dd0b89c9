package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/auth"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/health"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/metrics"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/skycache"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/stream"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/tle"
)

// Config holds the listen address and the dependencies the handlers
// serve from.
type Config struct {
	Addr   string
	Auth   auth.Config
	Store  *tle.Store
	Sky    *skycache.Cache
	Stream *stream.Handler
	Ready  health.ReadyFunc
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(cfg Config, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /{$}", indexHandler)
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(cfg.Ready))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1/report", reportHandler(logger, cfg.Store))
	mux.HandleFunc("GET /api/v1/sky", skyHandler(logger, cfg.Sky))
	mux.HandleFunc("GET /api/v1/passes", passesHandler(logger, cfg.Store))
	mux.HandleFunc("GET /api/v1/moon", moonHandler(logger))
	mux.HandleFunc("GET /api/v1/tle/metadata", tleMetadataHandler(cfg.Store))
	if cfg.Stream != nil {
		mux.HandleFunc("GET /api/v1/stream/sky", cfg.Stream.HandleSky)
	}

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(cfg.Auth)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

// statusRecorder captures the response code for the request log. Flush
// and Unwrap pass through so SSE streaming and ResponseController
// deadlines keep working behind the middleware.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
