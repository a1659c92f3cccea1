package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/codecritic/codecritic/internal/apperr"
	"github.com/codecritic/codecritic/internal/catalog"
	"github.com/codecritic/codecritic/internal/core"
)

// CreateReviewParams carries everything needed to persist a review.
type CreateReviewParams struct {
	ID          string              `json:"id"`
	Code        string              `json:"code"`
	ChatModelID catalog.ChatModelID `json:"chatModelId"`
	Language    catalog.LanguageID  `json:"programmingLanguage"`
	Review      string              `json:"review"`
}

// CreateAIReviewParams is CreateReviewParams without the review text; the
// backend generates it.
type CreateAIReviewParams struct {
	ID          string              `json:"id"`
	Code        string              `json:"code"`
	ChatModelID catalog.ChatModelID `json:"chatModelId"`
	Language    catalog.LanguageID  `json:"programmingLanguage"`
}

type reviewResponse struct {
	core.Review
}

func (r *reviewResponse) Validate() error { return r.Review.Validate() }

type historyPageResponse struct {
	core.HistoryPage
}

func (p *historyPageResponse) Validate() error {
	if p.Reviews == nil {
		return fmt.Errorf("reviews array is missing")
	}
	for i := range p.Reviews {
		if err := p.Reviews[i].Validate(); err != nil {
			return fmt.Errorf("review %d: %w", i, err)
		}
	}
	return nil
}

// CreateReview persists a completed review.
func (c *Client) CreateReview(ctx context.Context, token string, params CreateReviewParams) (*core.Review, error) {
	var out reviewResponse
	if err := c.doJSON(ctx, http.MethodPost, "/reviews/", token, params, &out); err != nil {
		return nil, err
	}
	return &out.Review, nil
}

// CreateReviewWithAI asks the backend to generate and persist a review.
// It returns the raw response body, a live stream of UTF-8 text chunks the
// caller must read to completion and close.
func (c *Client) CreateReviewWithAI(ctx context.Context, token string, params CreateAIReviewParams) (io.ReadCloser, error) {
	res, err := c.do(ctx, http.MethodPost, "/reviews/ai", token, params)
	if err != nil {
		return nil, err
	}
	if res.Body == nil {
		return nil, apperr.New(apperr.CodeUnknown)
	}
	return res.Body, nil
}

// GetReview fetches a single review by id.
func (c *Client) GetReview(ctx context.Context, token, id string) (*core.Review, error) {
	var out reviewResponse
	if err := c.doJSON(ctx, http.MethodGet, "/reviews/"+url.PathEscape(id), token, nil, &out); err != nil {
		return nil, err
	}
	return &out.Review, nil
}

// ListReviewsParams are the keyset-pagination parameters for ListReviews.
// StartingAfter and EndingBefore are mutually exclusive; the caller
// enforces that before reaching here.
type ListReviewsParams struct {
	Limit         int
	StartingAfter string
	EndingBefore  string
}

// ListReviews fetches one history page, newest first.
func (c *Client) ListReviews(ctx context.Context, token string, params ListReviewsParams) (*core.HistoryPage, error) {
	q := url.Values{}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.StartingAfter != "" {
		q.Set("starting_after", params.StartingAfter)
	}
	if params.EndingBefore != "" {
		q.Set("ending_before", params.EndingBefore)
	}

	path := "/reviews/"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out historyPageResponse
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return &out.HistoryPage, nil
}

// DeleteReview removes a review by id.
func (c *Client) DeleteReview(ctx context.Context, token, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/reviews/"+url.PathEscape(id), token, nil, nil)
}
