// Package core defines the data structures shared across the application:
// reviews, history pages, and users as they travel between the backend,
// the route handlers, and the clients.
package core

import (
	"fmt"
	"time"

	"github.com/codecritic/codecritic/internal/catalog"
)

// Review pairs submitted source code with its generated critique. A review
// is immutable once created except for deletion, and always belongs to
// exactly one user.
type Review struct {
	ID          string              `json:"id"`
	Code        string              `json:"code"`
	Review      string              `json:"review"`
	ChatModelID catalog.ChatModelID `json:"chatModelId"`
	Language    catalog.LanguageID  `json:"programmingLanguage"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// Validate checks the shape a backend response must have. Catalog
// membership is part of the schema: a review referencing an unknown model
// or language is malformed.
func (r *Review) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("review id is empty")
	}
	if !r.ChatModelID.Valid() {
		return fmt.Errorf("unknown chat model %q", r.ChatModelID)
	}
	if !r.Language.Valid() {
		return fmt.Errorf("unknown programming language %q", r.Language)
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("review createdAt is missing")
	}
	return nil
}

// HistoryPage is one page of a user's review history, newest first.
// HasMore signals that older reviews exist beyond this page.
type HistoryPage struct {
	Reviews []Review `json:"reviews"`
	HasMore bool     `json:"hasMore"`
}

// User identifies an account on the backend. Email is empty for guests
// only in sessions; the backend always stores one.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// UserWithToken is a user plus the bearer token for backend calls.
type UserWithToken struct {
	User
	AccessToken string `json:"accessToken"`
}
