package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/codecritic/codecritic/internal/backend"
	"github.com/codecritic/codecritic/internal/server/handler"
	"github.com/codecritic/codecritic/internal/session"
)

// NewRouter creates and configures a new HTTP router with middleware and API routes.
func NewRouter(bc *backend.Client, sessions *session.Manager, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Configure middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(sessions.Middleware)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		authHandler := handler.NewAuthHandler(bc, sessions, logger)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/register", authHandler.Register)
			r.Post("/guest", authHandler.Guest)
			r.Post("/logout", authHandler.Logout)
		})

		reviewHandler := handler.NewReviewHandler(bc, logger)
		// The AI route streams for the lifetime of a generation and must
		// not be cut off by the request timeout used elsewhere.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Post("/review", reviewHandler.Create)
			r.Get("/review/{id}", reviewHandler.Get)
			r.Delete("/review", reviewHandler.Delete)
			r.Get("/history", reviewHandler.History)
		})
		r.Post("/review/ai", reviewHandler.CreateAI)
	})

	return r
}
