// Package appapi is the client for this application's own HTTP surface
// (/api/review, /api/review/ai, /api/history, /api/auth). Authentication
// travels in the session cookie, which the client keeps in a cookie jar
// after login.
package appapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"

	"github.com/codecritic/codecritic/internal/apperr"
	"github.com/codecritic/codecritic/internal/backend"
	"github.com/codecritic/codecritic/internal/catalog"
	"github.com/codecritic/codecritic/internal/core"
	"github.com/codecritic/codecritic/internal/session"
)

// AIReviewRequest is the body of POST /api/review/ai.
type AIReviewRequest struct {
	ID           string              `json:"id"`
	Code         string              `json:"code"`
	ModelID      catalog.ChatModelID `json:"modelId"`
	LanguageType catalog.LanguageID  `json:"languageType"`
}

// ReviewRequest is the body of POST /api/review.
type ReviewRequest struct {
	AIReviewRequest
	Review string `json:"review"`
}

// Client calls the application server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the application server at baseURL, e.g.
// "http://localhost:3000".
func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Jar: jar},
	}, nil
}

// SessionToken returns the current session cookie value, if the jar holds
// one. Callers can stash it and seed a future client with SetSessionToken.
func (c *Client) SessionToken() (string, bool) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", false
	}
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name == session.CookieName && cookie.Value != "" {
			return cookie.Value, true
		}
	}
	return "", false
}

// SetSessionToken seeds the cookie jar with a previously saved session.
func (c *Client) SetSessionToken(token string) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return
	}
	c.httpClient.Jar.SetCookies(u, []*http.Cookie{{
		Name:  session.CookieName,
		Value: token,
		Path:  "/",
	}})
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Newf(apperr.CodeNetwork, err.Error())
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		defer res.Body.Close()
		return nil, fromAppResponse(res)
	}
	return res, nil
}

// fromAppResponse parses this application's own error envelope
// {errorCode, message}.
func fromAppResponse(res *http.Response) *apperr.Error {
	var env struct {
		ErrorCode apperr.Code `json:"errorCode"`
		Message   string      `json:"message"`
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err == nil {
		if jsonErr := json.Unmarshal(body, &env); jsonErr == nil && env.ErrorCode != "" {
			return apperr.Newf(env.ErrorCode, env.Message)
		}
	}
	return apperr.Newf(apperr.CodeUnknown, res.Status)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	res, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return apperr.Newf(apperr.CodeUnknown, "unexpected response body: "+err.Error())
	}
	return nil
}

// Login signs in with credentials; the session cookie lands in the jar.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	return c.doJSON(ctx, http.MethodPost, "/api/auth/login", body, nil)
}

// Register creates an account and signs in.
func (c *Client) Register(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	return c.doJSON(ctx, http.MethodPost, "/api/auth/register", body, nil)
}

// Guest starts a guest session.
func (c *Client) Guest(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/guest", nil, nil)
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// StreamAIReview submits code for a hosted-model review. The returned body
// is a live stream of UTF-8 text chunks; the caller reads it to completion
// and closes it.
func (c *Client) StreamAIReview(ctx context.Context, req AIReviewRequest) (io.ReadCloser, error) {
	res, err := c.do(ctx, http.MethodPost, "/api/review/ai", req)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// CreateReview persists a completed review through the application server.
// The token parameter exists to satisfy jobs.Saver; credentials travel in
// the session cookie and the token is ignored.
func (c *Client) CreateReview(ctx context.Context, _ string, params backend.CreateReviewParams) (*core.Review, error) {
	req := ReviewRequest{
		AIReviewRequest: AIReviewRequest{
			ID:           params.ID,
			Code:         params.Code,
			ModelID:      params.ChatModelID,
			LanguageType: params.Language,
		},
		Review: params.Review,
	}
	var out core.Review
	if err := c.doJSON(ctx, http.MethodPost, "/api/review", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetReview fetches a single review by id.
func (c *Client) GetReview(ctx context.Context, id string) (*core.Review, error) {
	var out core.Review
	if err := c.doJSON(ctx, http.MethodGet, "/api/review/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History fetches one page of review history.
func (c *Client) History(ctx context.Context, limit int, startingAfter, endingBefore string) (*core.HistoryPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if startingAfter != "" {
		q.Set("starting_after", startingAfter)
	}
	if endingBefore != "" {
		q.Set("ending_before", endingBefore)
	}

	path := "/api/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out core.HistoryPage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteReview removes a review by id.
func (c *Client) DeleteReview(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/review?id="+url.QueryEscape(id), nil, nil)
}
