// Package backend is the typed HTTP client for the upstream review API.
// Every function issues exactly one call against the configured base URL,
// attaches the bearer token where required, and validates the response
// shape before returning it.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/codecritic/codecritic/internal/apperr"
)

// Client issues authenticated calls to the backend review API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client for the given base URL, e.g.
// "http://localhost:8000/api/v1".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: newHTTPClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newHTTPClient builds a client with generous timeouts; AI-generated
// reviews can stream for minutes.
func newHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   5 * time.Minute,
	}
}

// do sends one request and returns the raw response. Transport failures
// become NETWORK_ERROR; non-2xx statuses become the backend's own error
// reconstructed from its envelope.
func (c *Client) do(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
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
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Newf(apperr.CodeNetwork, err.Error())
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		defer res.Body.Close()
		return nil, apperr.FromResponse(res)
	}
	return res, nil
}

// validator is implemented by response types that check their own shape.
type validator interface {
	Validate() error
}

// doJSON sends a request and decodes the JSON response into out. A body
// that does not match the expected shape fails with VALIDATION_ERROR.
func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out any) error {
	res, err := c.do(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return apperr.Newf(apperr.CodeValidation, "unexpected response body: "+err.Error())
	}
	if v, ok := out.(validator); ok {
		if err := v.Validate(); err != nil {
			return apperr.Newf(apperr.CodeValidation, err.Error())
		}
	}
	return nil
}
