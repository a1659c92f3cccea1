package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/codecritic/codecritic/internal/apperr"
	"github.com/codecritic/codecritic/internal/upstream/storage"
	"github.com/codecritic/codecritic/internal/upstream/token"
)

// AuthHandler implements the /auth routes: account signup, login and
// anonymous guest accounts.
type AuthHandler struct {
	store  storage.Store
	tokens *token.Manager
	logger *slog.Logger
}

func NewAuthHandler(store storage.Store, tokens *token.Manager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{store: store, tokens: tokens, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c credentialsRequest) validate() *apperr.Error {
	if !strings.Contains(c.Email, "@") {
		return apperr.Newf(apperr.CodeValidation, "a valid email is required")
	}
	if len(c.Password) < 6 {
		return apperr.Newf(apperr.CodeValidation, "password must be at least 6 characters")
	}
	return nil
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type userWithTokenPayload struct {
	userPayload
	AccessToken string `json:"accessToken"`
}

// Signup creates a new account. The email must not be taken.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var creds credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, apperr.Newf(apperr.CodeValidation, "invalid request body"))
		return
	}
	if appErr := creds.validate(); appErr != nil {
		writeError(w, appErr)
		return
	}

	user, err := h.createUser(r, creds.Email, creds.Password, false)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			writeError(w, apperr.New(apperr.CodeEmailAlreadyExists))
			return
		}
		h.logger.Error("signup failed", "error", err)
		writeError(w, apperr.New(apperr.CodeUnknown))
		return
	}

	writeJSON(w, http.StatusCreated, userPayload{ID: user.ID, Email: user.Email})
}

// Login verifies credentials and returns a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, apperr.Newf(apperr.CodeValidation, "invalid request body"))
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), creds.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, apperr.New(apperr.CodeInvalidCredentials))
			return
		}
		h.logger.Error("login failed", "error", err)
		writeError(w, apperr.New(apperr.CodeUnknown))
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)) != nil {
		writeError(w, apperr.New(apperr.CodeInvalidCredentials))
		return
	}

	h.respondWithToken(w, user)
}

// Guest creates an anonymous account and returns it with a bearer token.
// Guests get a synthetic email and a throwaway password.
func (h *AuthHandler) Guest(w http.ResponseWriter, r *http.Request) {
	email := fmt.Sprintf("guest-%s@guest.local", uuid.NewString())

	user, err := h.createUser(r, email, uuid.NewString(), true)
	if err != nil {
		h.logger.Error("guest signup failed", "error", err)
		writeError(w, apperr.New(apperr.CodeUnknown))
		return
	}

	h.respondWithToken(w, user)
}

func (h *AuthHandler) createUser(r *http.Request, email, password string, guest bool) (*storage.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &storage.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		IsGuest:      guest,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		return nil, err
	}
	return user, nil
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, user *storage.User) {
	signed, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("failed to issue bearer token", "error", err)
		writeError(w, apperr.New(apperr.CodeUnknown))
		return
	}

	writeJSON(w, http.StatusOK, userWithTokenPayload{
		userPayload: userPayload{ID: user.ID, Email: user.Email},
		AccessToken: signed,
	})
}
