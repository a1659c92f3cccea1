// Package storage implements the backend's Postgres persistence: user
// accounts and the per-user review history with keyset pagination.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/codecritic/codecritic/internal/catalog"
)

// Sentinel errors the handlers translate into API error codes.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrCursorNotFound = errors.New("pagination cursor not found")
)

// uniqueViolation is the Postgres error code for unique constraint breaches.
const uniqueViolation = "23505"

// User is a stored account row.
type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	IsGuest      bool      `db:"is_guest"`
	CreatedAt    time.Time `db:"created_at"`
}

// Review is a stored review row.
type Review struct {
	ID          string              `db:"id"`
	UserID      string              `db:"user_id"`
	Code        string              `db:"code"`
	Review      string              `db:"review"`
	ChatModelID catalog.ChatModelID `db:"chat_model_id"`
	Language    catalog.LanguageID  `db:"programming_language"`
	CreatedAt   time.Time           `db:"created_at"`
}

// ListParams selects one keyset page of a user's reviews, newest first.
// StartingAfter and EndingBefore are review ids and mutually exclusive.
type ListParams struct {
	UserID        string
	Limit         int
	StartingAfter string
	EndingBefore  string
}

// Store defines the interface for all database operations.
type Store interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)

	SaveReview(ctx context.Context, review *Review) error
	GetReview(ctx context.Context, id string) (*Review, error)
	DeleteReview(ctx context.Context, id string) error
	ListReviews(ctx context.Context, params ListParams) ([]Review, bool, error)
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a new Store
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) CreateUser(ctx context.Context, user *User) error {
	query := `INSERT INTO users (id, email, password_hash, is_guest, created_at)
	          VALUES ($1, $2, $3, $4, $5)`
	_, err := s.db.ExecContext(ctx, query, user.ID, user.Email, user.PasswordHash, user.IsGuest, user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *postgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := s.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user by email: %w", err)
	}
	return &user, nil
}

func (s *postgresStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	var user User
	err := s.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func (s *postgresStore) SaveReview(ctx context.Context, review *Review) error {
	query := `INSERT INTO reviews (id, user_id, code, review, chat_model_id, programming_language, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.ExecContext(ctx, query,
		review.ID, review.UserID, review.Code, review.Review,
		review.ChatModelID, review.Language, review.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

func (s *postgresStore) GetReview(ctx context.Context, id string) (*Review, error) {
	var review Review
	err := s.db.GetContext(ctx, &review, `SELECT * FROM reviews WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load review: %w", err)
	}
	return &review, nil
}

func (s *postgresStore) DeleteReview(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListReviews returns one page, newest first. It fetches limit+1 rows so
// the extra row answers hasMore without a second query. A cursor is
// resolved to its created_at timestamp; a cursor that does not belong to
// the user yields ErrCursorNotFound.
func (s *postgresStore) ListReviews(ctx context.Context, params ListParams) ([]Review, bool, error) {
	query := `SELECT * FROM reviews WHERE user_id = $1`
	args := []any{params.UserID}

	cursor := params.StartingAfter
	op := ">"
	if params.EndingBefore != "" {
		cursor = params.EndingBefore
		op = "<"
	}
	if cursor != "" {
		at, err := s.reviewCreatedAt(ctx, params.UserID, cursor)
		if err != nil {
			return nil, false, err
		}
		query += fmt.Sprintf(` AND created_at %s $2`, op)
		args = append(args, at)
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, params.Limit+1)

	var reviews []Review
	if err := s.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		return nil, false, fmt.Errorf("failed to list reviews: %w", err)
	}

	hasMore := len(reviews) > params.Limit
	if hasMore {
		reviews = reviews[:params.Limit]
	}
	return reviews, hasMore, nil
}

func (s *postgresStore) reviewCreatedAt(ctx context.Context, userID, reviewID string) (time.Time, error) {
	var at time.Time
	err := s.db.GetContext(ctx, &at,
		`SELECT created_at FROM reviews WHERE id = $1 AND user_id = $2`, reviewID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrCursorNotFound
		}
		return time.Time{}, fmt.Errorf("failed to resolve pagination cursor: %w", err)
	}
	return at, nil
}
