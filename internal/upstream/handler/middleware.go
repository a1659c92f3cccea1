package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/codecritic/codecritic/internal/apperr"
	"github.com/codecritic/codecritic/internal/upstream/token"
)

type userIDKey struct{}

// Auth rejects requests without a valid bearer token and attaches the
// authenticated user id to the request context.
func Auth(tokens *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				writeError(w, apperr.New(apperr.CodeUnauthorized))
				return
			}

			userID, err := tokens.Parse(raw)
			if err != nil {
				writeError(w, apperr.New(apperr.CodeUnauthorized))
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user id attached by Auth.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}
