// Package venues holds the HTTP plumbing shared by venue adapters.
package venues

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/xbklairith/aubit-poly/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrNotConnected is returned when a source is used before Connect.
var ErrNotConnected = errors.New("source not connected")

// DefaultTimeout is the per-request timeout for venue APIs.
const DefaultTimeout = 30 * time.Second

// ClientConfig holds configuration for a venue HTTP client.
type ClientConfig struct {
	Venue     types.Venue
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
	Headers   map[string]string
	Logger    *zap.Logger
}

// Client is a rate-limited JSON-over-HTTP client for one venue.
type Client struct {
	venue      types.Venue
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	headers    map[string]string
	logger     *zap.Logger
}

// NewClient creates a venue client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		venue:      cfg.Venue,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		headers:    cfg.Headers,
		logger:     logger,
	}
}

// GetJSON issues GET baseURL+path?params and decodes the body into out.
// Failures are returned as *types.VenueError tagged with op.
func (c *Client) GetJSON(ctx context.Context, op string, path string, params url.Values, out interface{}) error {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return c.fail(op, 0, fmt.Errorf("rate limit wait: %w", err))
	}

	requestURL := c.baseURL + path
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return c.fail(op, 0, fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "aubit-poly/1.0")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	c.logger.Debug("venue-request",
		zap.String("venue", string(c.venue)),
		zap.String("op", op),
		zap.String("url", requestURL))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(op, 0, fmt.Errorf("do request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(op, resp.StatusCode, fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return c.fail(op, resp.StatusCode, fmt.Errorf("unexpected response: %s", truncate(string(body), 256)))
	}

	err = json.Unmarshal(body, out)
	if err != nil {
		return c.fail(op, resp.StatusCode, fmt.Errorf("unmarshal response: %w", err))
	}

	return nil
}

// Venue returns the venue this client talks to.
func (c *Client) Venue() types.Venue {
	return c.venue
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) fail(op string, status int, err error) error {
	RequestFailuresTotal.WithLabelValues(string(c.venue), op).Inc()
	return &types.VenueError{Venue: c.venue, Op: op, StatusCode: status, Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ParseTime parses an RFC 3339 timestamp, returning nil for empty or
// malformed input.
func ParseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
