// Package server provides the HTTP API for vexus.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/vexus/internal/analysis"
	"github.com/hyperjump/vexus/internal/config"
	"github.com/hyperjump/vexus/internal/storage"
	"github.com/hyperjump/vexus/internal/vector"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SourceOpener connects to the database vectors are recovered from.
type SourceOpener func(ctx context.Context) (storage.Source, error)

// Server is the HTTP server for the vexus API.
type Server struct {
	store    *vector.Store
	analyzer *analysis.Analyzer
	config   *config.Config
	open     SourceOpener
	logger   *zap.Logger
	server   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithSourceOpener replaces how /api/v1/recover reaches the database.
// The default opens cfg.Recovery with storage.Open.
func WithSourceOpener(open SourceOpener) Option {
	return func(s *Server) {
		if open != nil {
			s.open = open
		}
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(store *vector.Store, analyzer *analysis.Analyzer, cfg *config.Config, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:    store,
		analyzer: analyzer,
		config:   cfg,
		logger:   logger,
	}
	s.open = func(ctx context.Context) (storage.Source, error) {
		return storage.Open(ctx, cfg.Recovery.Driver, cfg.Recovery.DSN)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(countRequests)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/vectors", s.handleInsert)
		r.Post("/vectors/batch", s.handleInsertBatch)
		r.Delete("/vectors/{id}", s.handleRemove)
		r.Post("/search", s.handleSearch)
		r.Get("/stats", s.handleStats)
		r.Post("/save", s.handleSave)
		r.Post("/recover", s.handleRecover)

		r.Route("/analysis", func(r chi.Router) {
			r.Post("/svd", s.handleSVD)
			r.Post("/orthogonal", s.handleOrthogonal)
			r.Post("/handshake", s.handleHandshake)
			r.Post("/subspace", s.handleSubspace)
		})
	})
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
// It returns nil after a graceful Stop.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
