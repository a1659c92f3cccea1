package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/codecritic/codecritic/internal/apperr"
	"github.com/codecritic/codecritic/internal/backend"
	"github.com/codecritic/codecritic/internal/catalog"
	"github.com/codecritic/codecritic/internal/core"
	"github.com/codecritic/codecritic/internal/session"
)

// ReviewService is the slice of the backend client the review routes use.
type ReviewService interface {
	CreateReview(ctx context.Context, token string, params backend.CreateReviewParams) (*core.Review, error)
	CreateReviewWithAI(ctx context.Context, token string, params backend.CreateAIReviewParams) (io.ReadCloser, error)
	GetReview(ctx context.Context, token, id string) (*core.Review, error)
	DeleteReview(ctx context.Context, token, id string) error
	ListReviews(ctx context.Context, token string, params backend.ListReviewsParams) (*core.HistoryPage, error)
}

// ReviewHandler implements the /api/review and /api/history routes.
type ReviewHandler struct {
	reviews ReviewService
	logger  *slog.Logger
}

func NewReviewHandler(reviews ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, logger: logger}
}

const defaultHistoryLimit = 10

type reviewRequest struct {
	ID           string              `json:"id"`
	Code         string              `json:"code"`
	Review       string              `json:"review"`
	ModelID      catalog.ChatModelID `json:"modelId"`
	LanguageType catalog.LanguageID  `json:"languageType"`
}

// validate checks everything except Review, which only the persistence
// route requires.
func (r reviewRequest) validate() *apperr.Error {
	switch {
	case r.ID == "":
		return apperr.Newf(apperr.CodeValidation, "id is required")
	case uuid.Validate(r.ID) != nil:
		return apperr.Newf(apperr.CodeValidation, "id must be a UUID")
	case r.Code == "":
		return apperr.Newf(apperr.CodeValidation, "code is required")
	case !r.ModelID.Valid():
		return apperr.Newf(apperr.CodeValidation, "unknown chat model")
	case !r.LanguageType.Valid():
		return apperr.Newf(apperr.CodeValidation, "unknown programming language")
	}
	return nil
}

// Create persists a review generated client-side. The request is
// validated before the session is checked, so a malformed body yields 400
// even for anonymous callers.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Newf(apperr.CodeValidation, "invalid request body").WriteJSON(w)
		return
	}
	if err := req.validate(); err != nil {
		err.WriteJSON(w)
		return
	}
	if req.Review == "" {
		apperr.Newf(apperr.CodeValidation, "review is required").WriteJSON(w)
		return
	}

	sess, appErr := session.Require(r.Context())
	if appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	saved, err := h.reviews.CreateReview(r.Context(), sess.AccessToken, backend.CreateReviewParams{
		ID:          req.ID,
		Code:        req.Code,
		ChatModelID: req.ModelID,
		Language:    req.LanguageType,
		Review:      req.Review,
	})
	if err != nil {
		h.writeError(w, "failed to save review", err)
		return
	}

	writeJSON(w, saved)
}

// CreateAI forwards the code to the backend for AI review and relays the
// generated markdown back as a plain-text stream, flushing every chunk as
// it arrives.
func (h *ReviewHandler) CreateAI(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Newf(apperr.CodeValidation, "invalid request body").WriteJSON(w)
		return
	}
	if err := req.validate(); err != nil {
		err.WriteJSON(w)
		return
	}

	sess, appErr := session.Require(r.Context())
	if appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	body, err := h.reviews.CreateReviewWithAI(r.Context(), sess.AccessToken, backend.CreateAIReviewParams{
		ID:          req.ID,
		Code:        req.Code,
		ChatModelID: req.ModelID,
		Language:    req.LanguageType,
	})
	if err != nil {
		h.writeError(w, "failed to start AI review", err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				h.logger.Error("AI review stream interrupted", "review_id", req.ID, "error", readErr)
			}
			return
		}
	}
}

// Get fetches one of the caller's reviews by id, so a reload of the review
// URL can restore it.
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		apperr.Newf(apperr.CodeValidation, "id is required").WriteJSON(w)
		return
	}

	sess, appErr := session.Require(r.Context())
	if appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	found, err := h.reviews.GetReview(r.Context(), sess.AccessToken, id)
	if err != nil {
		h.writeError(w, "failed to load review", err)
		return
	}

	writeJSON(w, found)
}

// Delete removes one of the caller's reviews, identified by the id query
// parameter.
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		apperr.Newf(apperr.CodeValidation, "id is required").WriteJSON(w)
		return
	}

	sess, appErr := session.Require(r.Context())
	if appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	if err := h.reviews.DeleteReview(r.Context(), sess.AccessToken, id); err != nil {
		h.writeError(w, "failed to delete review", err)
		return
	}

	writeJSON(w, map[string]int{"status": http.StatusOK})
}

// History lists the caller's reviews, newest first, one keyset page at a
// time. The two cursors are mutually exclusive; sending both is rejected
// before the session is even looked at.
func (h *ReviewHandler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	startingAfter := q.Get("starting_after")
	endingBefore := q.Get("ending_before")
	if startingAfter != "" && endingBefore != "" {
		apperr.Newf(apperr.CodeValidation, "only one of starting_after or ending_before can be provided").WriteJSON(w)
		return
	}

	// An absent or unparseable limit falls back to the default rather
	// than failing the request.
	limit := defaultHistoryLimit
	if parsed, err := strconv.Atoi(q.Get("limit")); err == nil && parsed > 0 {
		limit = parsed
	}

	sess, appErr := session.Require(r.Context())
	if appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	page, err := h.reviews.ListReviews(r.Context(), sess.AccessToken, backend.ListReviewsParams{
		Limit:         limit,
		StartingAfter: startingAfter,
		EndingBefore:  endingBefore,
	})
	if err != nil {
		h.writeError(w, "failed to list reviews", err)
		return
	}

	writeJSON(w, page)
}

func (h *ReviewHandler) writeError(w http.ResponseWriter, msg string, err error) {
	appErr := apperr.FromError(err)
	if appErr.StatusCode() >= http.StatusInternalServerError {
		h.logger.Error(msg, "error", err)
	}
	appErr.WriteJSON(w)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
