// Package server provides the HTTP API for partsearch.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/config"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/metrics"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
)

// Searcher answers catalog queries. search.Engine implements it.
type Searcher interface {
	Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResult, error)
	Recommend(ctx context.Context, query *models.RecommendQuery) (*models.RecommendationResult, error)
	FullTextAvailable() bool
}

// StatsReader reports catalog row counts.
type StatsReader interface {
	Stats(ctx context.Context) (*models.CatalogStats, error)
}

// Cache is a derived catalog cache an operator can drop.
type Cache interface {
	Invalidate()
	BuiltAt() time.Time
}

// Caches maps a cache name to the cache.
type Caches map[string]Cache

// Server is the HTTP server for the partsearch API.
type Server struct {
	engine Searcher
	stats  StatsReader
	caches Caches
	config *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine Searcher,
	stats StatsReader,
	cfg *config.Config,
	logger *zap.Logger,
	caches Caches,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if caches == nil {
		caches = Caches{}
	}
	return &Server{
		engine: engine,
		stats:  stats,
		caches: caches,
		config: cfg,
		logger: logger,
	}
}

// Handler builds the router with every route and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.Server.RequestTimeout()))
	r.Use(middleware.Compress(5))
	r.Use(instrument)
	if n := s.config.Server.RateLimitPerMinute; n > 0 {
		r.Use(httprate.LimitByIP(n, time.Minute))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/recommendations", s.handleRecommendations)
		r.Get("/status", s.handleStatus)
		r.Post("/admin/caches/invalidate", s.handleInvalidateCaches)
	})
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// requestID tags every request and response with an X-Request-ID, keeping a
// caller-supplied one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// instrument records request count and latency per route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordAPIRequest(r.Method, endpoint, status, time.Since(start))
	})
}
