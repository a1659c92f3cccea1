// Package server implements the application-facing HTTP server. It sits
// between clients and the review backend: it owns the session cookie,
// forwards review and history calls with the session's bearer token, and
// relays AI review streams without buffering.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/codecritic/codecritic/internal/backend"
	"github.com/codecritic/codecritic/internal/config"
	"github.com/codecritic/codecritic/internal/session"
)

// Server wraps an HTTP server with graceful shutdown capabilities.
type Server struct {
	ctx    context.Context
	server *http.Server
	logger *slog.Logger
}

// NewServer creates the HTTP server with the given configuration,
// backend client and session manager.
func NewServer(ctx context.Context, cfg *config.Config, bc *backend.Client, sessions *session.Manager, logger *slog.Logger) *Server {
	router := NewRouter(bc, sessions, logger)

	return &Server{
		ctx: ctx,
		server: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: router,
			// WriteTimeout must cover a full AI review stream, which can
			// run for minutes on large inputs.
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
}

// Start starts the HTTP server and blocks until shutdown or error.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server with a 30-second timeout.
func (s *Server) Stop() error {
	s.logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}
