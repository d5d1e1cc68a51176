// Package client is a Go client for the marquee HTTP API, plus
// session-scoped repositories that cache list reads for UI consumers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"marquee/lists"
	"marquee/models"
)

// APIError is a non-2xx response from the API
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client talks to the API over HTTP
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithToken authenticates requests with a session token
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the API at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the session token in use
func (c *Client) Token() string { return c.token }

// SignIn exchanges credentials for a session token and keeps it for later calls
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	var out struct {
		Token string       `json:"token"`
		User  *models.User `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/signin", nil, body, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return out.User, nil
}

// SignOut ends the current session
func (c *Client) SignOut(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/signout", nil, nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

// ListWatched fetches the caller's watched items
func (c *Client) ListWatched(ctx context.Context, filter models.WatchedFilter) ([]models.WatchedItem, error) {
	q := url.Values{}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.DateFrom != "" {
		q.Set("dateFrom", filter.DateFrom)
	}
	if filter.DateTo != "" {
		q.Set("dateTo", filter.DateTo)
	}

	var out struct {
		Items []models.WatchedItem `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/watched", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// AddWatched records a watched item
func (c *Client) AddWatched(ctx context.Context, in lists.WatchedInput) (*models.WatchedItem, error) {
	var out struct {
		Item *models.WatchedItem `json:"item"`
	}
	if err := c.do(ctx, http.MethodPost, "/watched", nil, in, &out); err != nil {
		return nil, err
	}
	return out.Item, nil
}

// UpdateWatched applies a partial update
func (c *Client) UpdateWatched(ctx context.Context, id int, patch lists.WatchedPatch) (*models.WatchedItem, error) {
	var out struct {
		Item *models.WatchedItem `json:"item"`
	}
	if err := c.do(ctx, http.MethodPut, "/watched/"+strconv.Itoa(id), nil, patch, &out); err != nil {
		return nil, err
	}
	return out.Item, nil
}

// RemoveWatched deletes a watched item
func (c *Client) RemoveWatched(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/watched/"+strconv.Itoa(id), nil, nil, nil)
}

// ListWatchlist fetches the caller's watchlist
func (c *Client) ListWatchlist(ctx context.Context) ([]models.WatchlistItem, error) {
	var out struct {
		Items []models.WatchlistItem `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/watchlist", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// AddWatchlist adds an entry to the watchlist
func (c *Client) AddWatchlist(ctx context.Context, in lists.WatchlistInput) (*models.WatchlistItem, error) {
	var out struct {
		Item *models.WatchlistItem `json:"item"`
	}
	if err := c.do(ctx, http.MethodPost, "/watchlist", nil, in, &out); err != nil {
		return nil, err
	}
	return out.Item, nil
}

// RemoveWatchlist deletes a watchlist entry
func (c *Client) RemoveWatchlist(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/watchlist/"+strconv.Itoa(id), nil, nil, nil)
}

// Search looks up movies or TV shows by title
func (c *Client) Search(ctx context.Context, kind models.MediaType, query string) ([]models.MediaSummary, error) {
	var out struct {
		Results []models.MediaSummary `json:"results"`
	}
	q := url.Values{"q": {query}, "type": {string(kind)}}
	if err := c.do(ctx, http.MethodGet, "/metadata/search", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Details fetches the full record of a movie or TV show
func (c *Client) Details(ctx context.Context, kind models.MediaType, id int) (*models.MediaDetail, error) {
	var out models.MediaDetail
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/metadata/%s/%d", kind, id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var e struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			apiErr.Message = e.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}
