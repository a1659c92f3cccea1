// Package session issues and verifies the signed session tokens that carry
// the authenticated user context, including the bearer token used for all
// backend calls.
package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/codecritic/codecritic/internal/apperr"
)

// CookieName is the session cookie set by the auth routes.
const CookieName = "codecritic_session"

// UserType distinguishes guest sessions from regular accounts.
type UserType string

const (
	UserTypeGuest   UserType = "guest"
	UserTypeRegular UserType = "regular"
)

// Session is the authenticated user context read on every protected route.
type Session struct {
	UserID      string
	Email       string
	UserType    UserType
	AccessToken string
}

type claims struct {
	jwt.RegisteredClaims
	Email       string   `json:"email,omitempty"`
	UserType    UserType `json:"utype"`
	AccessToken string   `json:"atoken"`
}

// Manager signs and parses session tokens with an HS256 secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager creates a Manager. ttl bounds how long an issued session stays
// valid.
func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the given session.
func (m *Manager) Issue(s Session) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Email:       s.Email,
		UserType:    s.UserType,
		AccessToken: s.AccessToken,
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns the session it carries. Expired or
// tampered tokens fail.
func (m *Manager) Parse(tokenString string) (*Session, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse session token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("session token is not valid")
	}

	return &Session{
		UserID:      c.Subject,
		Email:       c.Email,
		UserType:    c.UserType,
		AccessToken: c.AccessToken,
	}, nil
}

// SetCookie writes the session cookie on the response.
func (m *Manager) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie removes the session cookie.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

type contextKey struct{}

// Middleware attaches the session from the request cookie to the context
// when present and valid. It never rejects: handlers decide whether a
// session is required.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err == nil {
			if s, err := m.Parse(cookie.Value); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), contextKey{}, s))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// NewContext returns ctx with the given session attached, as Middleware
// would.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session attached by Middleware, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok
}

// Require returns the session or an UNAUTHORIZED application error when the
// request has no session or the session carries no bearer token.
func Require(ctx context.Context) (*Session, *apperr.Error) {
	s, ok := FromContext(ctx)
	if !ok || s.AccessToken == "" {
		return nil, apperr.New(apperr.CodeUnauthorized)
	}
	return s, nil
}
