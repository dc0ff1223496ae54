// Package server exposes the lot pipeline over HTTP: upload a register
// export, get back a GeoJSON FeatureCollection of located lots.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/lotmap/internal/batch"
	"github.com/sells-group/lotmap/internal/ingest"
	"github.com/sells-group/lotmap/internal/model"
	"github.com/sells-group/lotmap/internal/store"
)

// Runner resolves a batch of lots. *batch.Driver satisfies it.
type Runner interface {
	ResolveAll(ctx context.Context, lots []model.LotRecord, limit int) (batch.Result, error)
}

// Config bounds what a single upload may ask for.
type Config struct {
	MaxUploadBytes int64
	MaxLots        int
	Ingest         ingest.Options
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	runner   Runner
	store    store.Store
	gatherer prometheus.Gatherer
	cfg      Config
}

// Option configures a Server.
type Option func(*Server)

// WithStore saves every upload run to st.
func WithStore(st store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithGatherer serves g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// New creates a Server.
func New(runner Runner, cfg Config, opts ...Option) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	if cfg.MaxLots <= 0 {
		cfg.MaxLots = 1000
	}
	s := &Server{runner: runner, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{HeaderRunID},
		MaxAge:         300,
	}))

	r.Get("/health", s.Health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.Upload)
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// requestLogger logs one line per request through zap.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
