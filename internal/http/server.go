package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"finspect/internal/log"
	"finspect/internal/metrics"
	"finspect/internal/middleware/ratelimit"
	"finspect/internal/middleware/security"
	"finspect/internal/middleware/trace"
	"finspect/internal/services"
)

// Options configures the JSON server.
type Options struct {
	Logger         *log.Logger
	RateLimit      ratelimit.Config
	MetricsEnabled bool
	// RequestTimeout bounds each handler's calls to the category API.
	RequestTimeout time.Duration
}

// Server serves the category engine over HTTP.
type Server struct {
	http.Server
	svc      *services.CategoryService
	logger   *log.Logger
	events   *log.StructuredLogger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	timeout  time.Duration
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *services.CategoryService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      timeout + 5*time.Second,
			IdleTimeout:       60 * time.Second,
		},
		svc:      svc,
		logger:   logger,
		events:   log.NewStructuredLogger(logger),
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
		detector: security.NewDetector(),
		timeout:  timeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if opts.MetricsEnabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	mux.HandleFunc("GET /api/categories", s.handleList)
	mux.HandleFunc("GET /api/categories/tree", s.handleTree)
	mux.HandleFunc("GET /api/categories/options", s.handleOptions)
	mux.HandleFunc("GET /api/categories/stats", s.handleStats)
	mux.HandleFunc("GET /api/categories/status", s.handleStatus)
	mux.HandleFunc("GET /api/categories/top-level", s.handleTopLevel)
	mux.HandleFunc("GET /api/categories/search", s.handleSearch)
	mux.HandleFunc("GET /api/categories/{id}", s.handleGet)
	mux.HandleFunc("GET /api/categories/{id}/path", s.handlePath)
	mux.HandleFunc("GET /api/categories/{id}/subcategories", s.handleSubcategories)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)
	mux.Handle("POST /api/categories", limited(http.HandlerFunc(s.handleCreate)))
	mux.Handle("PUT /api/categories/{id}", limited(http.HandlerFunc(s.handleUpdate)))
	mux.Handle("DELETE /api/categories/{id}", limited(http.HandlerFunc(s.handleDelete)))
	mux.Handle("PUT /api/categories/{id}/activate", limited(http.HandlerFunc(s.handleActivate)))
	mux.Handle("POST /api/categories/refresh", limited(http.HandlerFunc(s.handleRefresh)))

	route := func(r *http.Request) string {
		if _, pattern := mux.Handler(r); pattern != "" {
			return pattern
		}
		return "unmatched"
	}
	tracer := trace.NewMiddleware(logger, s.detector.ExtractClientIP, route)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var handler http.Handler = mux
	handler = s.withDetection(handler)
	handler = log.Middleware(logger, trace.GetRequestID)(handler)
	handler = headers.Middleware(handler)
	handler = tracer.Middleware(handler)
	s.Handler = handler

	return s
}

// Shutdown stops accepting requests, waits for in-flight ones and stops
// the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

// ListenAndServe serves until Shutdown. http.ErrServerClosed is not an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", "addr", s.Addr)
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// withDetection logs probe-like requests. They are still served.
func (s *Server) withDetection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(),
				"Suspicious request", log.FieldPath, r.URL.Path, log.FieldClientIP, s.detector.ExtractClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	metrics.RateLimited.Inc()
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded", log.FieldClientIP, s.detector.ExtractClientIP(r), log.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]string{"status": "ok"}).Write(w)
}

// handleReady fails until the first list load has succeeded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	snap := s.svc.Snapshot()
	if snap.LoadedAt.IsZero() {
		NewJSONResponse().Status(http.StatusServiceUnavailable).
			Data(map[string]string{"status": "loading"}).Write(w)
		return
	}
	NewJSONResponse().Data(map[string]any{
		"status":     "ready",
		"categories": snap.Stats.Total,
		"loadedAt":   snap.LoadedAt,
	}).Write(w)
}
