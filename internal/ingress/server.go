// Package ingress exposes the job/batch submission and status HTTP surface
// (spec.md §6.1), matching the teacher's stdlib http.ServeMux-based server.
package ingress

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/contentforge/orchestrator/internal/handlers"
	"github.com/contentforge/orchestrator/internal/store"
	"github.com/ternarybob/arbor"
)

// Config configures the HTTP listener.
type Config struct {
	Host string
	Port int
}

// Server wraps an http.Server bound to the job/batch routes.
type Server struct {
	cfg      Config
	store    store.Store
	registry *handlers.Registry
	logger   arbor.ILogger

	httpServer *http.Server
}

// New builds a Server; call Start to begin listening.
func New(cfg Config, s store.Store, registry *handlers.Registry, logger arbor.ILogger) *Server {
	srv := &Server{cfg: cfg, store: s, registry: registry, logger: logger}

	mux := http.NewServeMux()
	srv.registerRoutes(mux)

	srv.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      loggingMiddleware(logger, mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv
}

// Start begins serving and blocks until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("http server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down http server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func loggingMiddleware(logger arbor.ILogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}
