// Package scoring is the HTTP client for the remote similarity and
// citation-suggestion service.
//
// Calls never return a Go error to the caller. A failed call yields a result
// whose Err is set and whose data is empty, so callers that only care about
// data keep working while callers that render a "service unavailable" state
// can check OK.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds each scoring call, including rate-limit waits.
	DefaultTimeout = 60 * time.Second

	// DefaultRateLimit is the default number of requests per second.
	DefaultRateLimit = 5.0

	// maxErrorBody caps how much of an error response is kept.
	maxErrorBody = 512
)

// Endpoints holds the service URLs. They are injected, never hard-coded.
type Endpoints struct {
	Similarity string `yaml:"similarity" json:"similarity"`
	Suggestion string `yaml:"suggestion" json:"suggestion"`
}

// Client is a rate-limited client for the scoring service.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	endpoints  Endpoints
	timeout    time.Duration
	logger     zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-call timeout. Zero disables it.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRateLimit sets the request rate in requests per second.
// A non-positive value disables limiting.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithLogger sets the logger used to report failed calls.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a scoring client for the given endpoints.
func NewClient(endpoints Endpoints, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		endpoints:  endpoints,
		timeout:    DefaultTimeout,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoints returns the configured endpoints.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// postJSON sends body to url and decodes a 2xx JSON response into out.
func (c *Client) postJSON(ctx context.Context, url string, body, out any) error {
	if url == "" {
		return ErrNoEndpoint
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", ErrUnavailable, err)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   url,
			Message:    string(bytes.TrimSpace(msg)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
