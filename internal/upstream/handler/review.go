package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/codecritic/codecritic/internal/apperr"
	"github.com/codecritic/codecritic/internal/catalog"
	"github.com/codecritic/codecritic/internal/core"
	"github.com/codecritic/codecritic/internal/upstream/generator"
	"github.com/codecritic/codecritic/internal/upstream/storage"
)

const defaultListLimit = 10

// ReviewHandler implements the /reviews routes. All of them require a
// bearer token; the Auth middleware has already resolved the user.
type ReviewHandler struct {
	store     storage.Store
	generator generator.Generator
	logger    *slog.Logger
}

func NewReviewHandler(store storage.Store, gen generator.Generator, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{store: store, generator: gen, logger: logger}
}

type createReviewRequest struct {
	ID          string              `json:"id"`
	Code        string              `json:"code"`
	Review      string              `json:"review"`
	ChatModelID catalog.ChatModelID `json:"chatModelId"`
	Language    catalog.LanguageID  `json:"programmingLanguage"`
}

func (r createReviewRequest) validate() *apperr.Error {
	switch {
	case r.ID == "":
		return apperr.Newf(apperr.CodeValidation, "id is required")
	case uuid.Validate(r.ID) != nil:
		return apperr.Newf(apperr.CodeValidation, "id must be a UUID")
	case r.Code == "":
		return apperr.Newf(apperr.CodeValidation, "code is required")
	case !r.ChatModelID.Valid():
		return apperr.Newf(apperr.CodeValidation, "unknown chat model")
	case !r.Language.Valid():
		return apperr.Newf(apperr.CodeValidation, "unknown programming language")
	}
	return nil
}

// Create stores a review whose text was generated elsewhere.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Newf(apperr.CodeValidation, "invalid request body"))
		return
	}
	if appErr := req.validate(); appErr != nil {
		writeError(w, appErr)
		return
	}
	if req.Review == "" {
		writeError(w, apperr.Newf(apperr.CodeValidation, "review is required"))
		return
	}

	record := &storage.Review{
		ID:          req.ID,
		UserID:      UserID(r.Context()),
		Code:        req.Code,
		Review:      req.Review,
		ChatModelID: req.ChatModelID,
		Language:    req.Language,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.store.SaveReview(r.Context(), record); err != nil {
		h.logger.Error("failed to save review", "review_id", req.ID, "error", err)
		writeError(w, apperr.New(apperr.CodeUnknown))
		return
	}

	writeJSON(w, http.StatusCreated, toCoreReview(record))
}

// CreateAI generates a review for the submitted code, streaming it back as
// plain text while it is produced, and persists the finished review.
func (h *ReviewHandler) CreateAI(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Newf(apperr.CodeValidation, "invalid request body"))
		return
	}
	if appErr := req.validate(); appErr != nil {
		writeError(w, appErr)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, _ := w.(http.Flusher)
	review, err := h.generator.Review(r.Context(), req.Code, req.Language, func(chunk string) {
		if _, err := w.Write([]byte(chunk)); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	})
	if err != nil {
		// Headers are out; all we can do is log and cut the stream.
		h.logger.Error("review generation failed", "review_id", req.ID, "error", err)
		return
	}

	record := &storage.Review{
		ID:          req.ID,
		UserID:      UserID(r.Context()),
		Code:        req.Code,
		Review:      review,
		ChatModelID: req.ChatModelID,
		Language:    req.Language,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.store.SaveReview(r.Context(), record); err != nil {
		h.logger.Error("failed to persist generated review", "review_id", req.ID, "error", err)
	}
}

// Get returns one of the caller's reviews.
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	record, appErr := h.ownedReview(r, chi.URLParam(r, "id"))
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, toCoreReview(record))
}

// Delete removes one of the caller's reviews.
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	record, appErr := h.ownedReview(r, chi.URLParam(r, "id"))
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	if err := h.store.DeleteReview(r.Context(), record.ID); err != nil {
		h.logger.Error("failed to delete review", "review_id", record.ID, "error", err)
		writeError(w, apperr.New(apperr.CodeUnknown))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List returns one keyset page of the caller's reviews, newest first.
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	startingAfter := q.Get("starting_after")
	endingBefore := q.Get("ending_before")
	if startingAfter != "" && endingBefore != "" {
		writeError(w, apperr.Newf(apperr.CodeValidation, "only one of starting_after or ending_before can be provided"))
		return
	}

	// An absent or unparseable limit falls back to the default rather
	// than failing the request.
	limit := defaultListLimit
	if parsed, err := strconv.Atoi(q.Get("limit")); err == nil && parsed > 0 {
		limit = parsed
	}

	records, hasMore, err := h.store.ListReviews(r.Context(), storage.ListParams{
		UserID:        UserID(r.Context()),
		Limit:         limit,
		StartingAfter: startingAfter,
		EndingBefore:  endingBefore,
	})
	if err != nil {
		if errors.Is(err, storage.ErrCursorNotFound) {
			writeError(w, apperr.Newf(apperr.CodeNotFound, "pagination cursor not found"))
			return
		}
		h.logger.Error("failed to list reviews", "error", err)
		writeError(w, apperr.New(apperr.CodeUnknown))
		return
	}

	page := core.HistoryPage{Reviews: make([]core.Review, 0, len(records)), HasMore: hasMore}
	for i := range records {
		page.Reviews = append(page.Reviews, *toCoreReview(&records[i]))
	}
	writeJSON(w, http.StatusOK, page)
}

// ownedReview loads a review and checks it belongs to the caller. A
// missing review is NOT_FOUND; someone else's review is FORBIDDEN.
func (h *ReviewHandler) ownedReview(r *http.Request, id string) (*storage.Review, *apperr.Error) {
	if id == "" {
		return nil, apperr.Newf(apperr.CodeValidation, "id is required")
	}

	record, err := h.store.GetReview(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.New(apperr.CodeNotFound)
		}
		h.logger.Error("failed to load review", "review_id", id, "error", err)
		return nil, apperr.New(apperr.CodeUnknown)
	}
	if record.UserID != UserID(r.Context()) {
		return nil, apperr.New(apperr.CodeForbidden)
	}
	return record, nil
}

func toCoreReview(r *storage.Review) *core.Review {
	return &core.Review{
		ID:          r.ID,
		Code:        r.Code,
		Review:      r.Review,
		ChatModelID: r.ChatModelID,
		Language:    r.Language,
		CreatedAt:   r.CreatedAt,
	}
}
