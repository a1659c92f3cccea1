// Package upstream assembles the reference review backend: the versioned
// HTTP API over Postgres storage and the hosted review generator.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/codecritic/codecritic/internal/config"
	"github.com/codecritic/codecritic/internal/upstream/generator"
	"github.com/codecritic/codecritic/internal/upstream/handler"
	"github.com/codecritic/codecritic/internal/upstream/storage"
	"github.com/codecritic/codecritic/internal/upstream/token"
)

// Server wraps the backend HTTP server with graceful shutdown.
type Server struct {
	ctx    context.Context
	server *http.Server
	logger *slog.Logger
}

// NewServer creates the backend server.
func NewServer(ctx context.Context, cfg *config.Config, store storage.Store, gen generator.Generator, logger *slog.Logger) *Server {
	tokens := token.NewManager(cfg.Upstream.TokenSecret, cfg.Upstream.TokenTTL)
	router := NewRouter(store, gen, tokens, logger)

	return &Server{
		ctx: ctx,
		server: &http.Server{
			Addr:    ":" + cfg.Upstream.Port,
			Handler: router,
			// WriteTimeout must outlast a full review generation.
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Minute,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
}

// NewRouter creates and configures the backend router.
func NewRouter(store storage.Store, gen generator.Generator, tokens *token.Manager, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		authHandler := handler.NewAuthHandler(store, tokens, logger)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.Post("/guest", authHandler.Guest)
		})

		reviewHandler := handler.NewReviewHandler(store, gen, logger)
		r.Route("/reviews", func(r chi.Router) {
			r.Use(handler.Auth(tokens))
			r.Post("/", reviewHandler.Create)
			r.Post("/ai", reviewHandler.CreateAI)
			r.Get("/", reviewHandler.List)
			r.Get("/{id}", reviewHandler.Get)
			r.Delete("/{id}", reviewHandler.Delete)
		})
	})

	return r
}

// Start starts the HTTP server and blocks until shutdown or error.
func (s *Server) Start() error {
	s.logger.Info("starting backend HTTP server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server with a 30-second timeout.
func (s *Server) Stop() error {
	s.logger.Info("shutting down backend HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}
