// Package tagsclient talks to the remote tag source over its json-server style
// REST endpoint.
package tagsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tagboard/internal/models"
)

const (
	// DefaultPerPage is the page size the screen requests.
	DefaultPerPage = 10

	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

// StatusError is returned when the tag source answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("tag source returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("tag source returned status %d: %s", e.StatusCode, e.Body)
}

// Options tunes a Client.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
	Logger    *slog.Logger
}

// Client fetches tag pages from the tag source.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// New creates a client for the tag source rooted at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse tag source url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("tag source url %q must be absolute", baseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL:    u,
		httpClient: httpClient,
		logger:     logger,
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.rateLimiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c, nil
}

// wait blocks until rate limiter allows a request.
func (c *Client) wait(ctx context.Context) error {
	if c.rateLimiter == nil {
		return nil
	}
	return c.rateLimiter.Wait(ctx)
}

// PageURL returns the URL requested for page at perPage rows.
func (c *Client) PageURL(page, perPage int) string {
	u := *c.baseURL
	u.Path = u.Path + "/tags"
	q := url.Values{}
	q.Set("_page", strconv.Itoa(page))
	q.Set("_per_page", strconv.Itoa(perPage))
	u.RawQuery = q.Encode()
	return u.String()
}

// ListTags requests one page of tags.
func (c *Client) ListTags(ctx context.Context, page, perPage int) (models.TagPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if err := c.wait(ctx); err != nil {
		return models.TagPage{}, fmt.Errorf("rate limit: %w", err)
	}

	endpoint := c.PageURL(page, perPage)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.TagPage{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.TagPage{}, fmt.Errorf("request tags page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return models.TagPage{}, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var tags models.TagPage
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return models.TagPage{}, fmt.Errorf("decode tags page %d: %w", page, err)
	}
	if tags.Data == nil {
		tags.Data = []models.Tag{}
	}

	c.logger.Debug("fetched tags page",
		slog.Int("page", page),
		slog.Int("rows", len(tags.Data)),
		slog.Int("items", tags.Items),
		slog.Duration("took", time.Since(start)))
	return tags, nil
}
