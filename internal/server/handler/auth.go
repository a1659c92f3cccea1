// Package handler contains the HTTP handlers for the application API.
// Every error leaves as the JSON error envelope written by apperr.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/codecritic/codecritic/internal/apperr"
	"github.com/codecritic/codecritic/internal/core"
	"github.com/codecritic/codecritic/internal/session"
)

// AuthService is the slice of the backend client the auth routes use.
type AuthService interface {
	Signup(ctx context.Context, email, password string) (*core.User, error)
	Login(ctx context.Context, email, password string) (*core.UserWithToken, error)
	SignupGuest(ctx context.Context) (*core.UserWithToken, error)
}

// AuthHandler implements the /api/auth routes. It exchanges credentials
// for a backend bearer token and wraps that token in a signed session
// cookie so clients never see it.
type AuthHandler struct {
	auth     AuthService
	sessions *session.Manager
	logger   *slog.Logger
}

func NewAuthHandler(auth AuthService, sessions *session.Manager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions, logger: logger}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c credentials) validate() *apperr.Error {
	if !strings.Contains(c.Email, "@") {
		return apperr.Newf(apperr.CodeValidation, "a valid email is required")
	}
	if len(c.Password) < 6 {
		return apperr.Newf(apperr.CodeValidation, "password must be at least 6 characters")
	}
	return nil
}

type userPayload struct {
	ID    string           `json:"id"`
	Email string           `json:"email,omitempty"`
	Type  session.UserType `json:"type"`
}

// Login authenticates against the backend and sets the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		apperr.Newf(apperr.CodeValidation, "invalid request body").WriteJSON(w)
		return
	}
	if err := creds.validate(); err != nil {
		err.WriteJSON(w)
		return
	}

	user, err := h.auth.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		h.writeError(w, "login failed", err)
		return
	}

	h.issueSession(w, session.Session{
		UserID:      user.ID,
		Email:       user.Email,
		UserType:    session.UserTypeRegular,
		AccessToken: user.AccessToken,
	})
}

// Register creates an account, then signs it in so the caller leaves with
// a live session.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		apperr.Newf(apperr.CodeValidation, "invalid request body").WriteJSON(w)
		return
	}
	if err := creds.validate(); err != nil {
		err.WriteJSON(w)
		return
	}

	if _, err := h.auth.Signup(r.Context(), creds.Email, creds.Password); err != nil {
		h.writeError(w, "signup failed", err)
		return
	}
	user, err := h.auth.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		h.writeError(w, "post-signup login failed", err)
		return
	}

	h.issueSession(w, session.Session{
		UserID:      user.ID,
		Email:       user.Email,
		UserType:    session.UserTypeRegular,
		AccessToken: user.AccessToken,
	})
}

// Guest creates an anonymous account with full review access.
func (h *AuthHandler) Guest(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.SignupGuest(r.Context())
	if err != nil {
		h.writeError(w, "guest signup failed", err)
		return
	}

	h.issueSession(w, session.Session{
		UserID:      user.ID,
		Email:       user.Email,
		UserType:    session.UserTypeGuest,
		AccessToken: user.AccessToken,
	})
}

// Logout clears the session cookie. It succeeds even without a session.
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	h.sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, s session.Session) {
	token, err := h.sessions.Issue(s)
	if err != nil {
		h.logger.Error("failed to issue session token", "error", err)
		apperr.New(apperr.CodeUnknown).WriteJSON(w)
		return
	}
	h.sessions.SetCookie(w, token)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(userPayload{
		ID:    s.UserID,
		Email: s.Email,
		Type:  s.UserType,
	})
}

func (h *AuthHandler) writeError(w http.ResponseWriter, msg string, err error) {
	appErr := apperr.FromError(err)
	if appErr.StatusCode() >= http.StatusInternalServerError {
		h.logger.Error(msg, "error", err)
	}
	appErr.WriteJSON(w)
}
