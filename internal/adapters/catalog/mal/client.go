// Package mal fetches user anime lists from the MyAnimeList v2 API.
package mal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hylla/animebridge/internal/app"
	"github.com/hylla/animebridge/internal/domain"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.myanimelist.net/v2"

// clientIDHeader carries the application credential on every request.
const clientIDHeader = "X-MAL-CLIENT-ID"

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 512

// Client implements app.Catalog over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if raw = strings.TrimRight(strings.TrimSpace(raw), "/"); raw != "" {
			c.baseURL = raw
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// NewClient constructs a catalog client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ app.Catalog = (*Client)(nil)

// listPage is the response envelope of the animelist endpoint.
type listPage struct {
	Data []domain.RawItem `json:"data"`
}

// FetchList fetches one page of the user's list. 401 maps to domain.ErrAuth,
// 404 to domain.ErrNotFound, and any other non-2xx status to *domain.TransportError.
func (c *Client) FetchList(ctx context.Context, q app.ListQuery, clientID string) ([]domain.RawItem, error) {
	user := strings.TrimSpace(q.User)
	if user == "" {
		return nil, fmt.Errorf("%w: catalog user is required", domain.ErrValidation)
	}
	endpoint := c.listURL(user, q)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build animelist request: %w", err)
	}
	req.Header.Set(clientIDHeader, clientID)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get animelist: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: invalid client id", domain.ErrAuth)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: user %q not found", domain.ErrNotFound, user)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &domain.TransportError{
			StatusCode: resp.StatusCode,
			Status:     strings.TrimSpace(resp.Status + " " + strings.TrimSpace(string(body))),
		}
	}

	var page listPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("%w: decode animelist: %w", domain.ErrTransport, err)
	}
	if page.Data == nil {
		return []domain.RawItem{}, nil
	}
	return page.Data, nil
}

// listURL builds the animelist endpoint for q.
func (c *Client) listURL(user string, q app.ListQuery) string {
	values := url.Values{}
	if q.Status != "" {
		values.Set("status", string(q.Status))
	}
	if q.Sort != "" {
		values.Set("sort", q.Sort)
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if len(q.Fields) > 0 {
		values.Set("fields", strings.Join(q.Fields, ","))
	}
	out := c.baseURL + "/users/" + url.PathEscape(user) + "/animelist"
	if encoded := values.Encode(); encoded != "" {
		out += "?" + encoded
	}
	return out
}
