package octopart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/anderwm/KiCost/internal/domain"
	"github.com/anderwm/KiCost/internal/logging"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultRetries       = 5
	defaultThrottleDelay = 5 * time.Second
	maxErrorBodyBytes    = 4096
)

// Client handles communication with the Octopart part-match API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	retries     int
	backoff     func(attempt int) time.Duration
	debug       bool
}

// Option configures a Client
type Option func(*Client)

// WithThrottle sets the minimum delay between two requests. Zero disables throttling.
func WithThrottle(delay time.Duration) Option {
	return func(c *Client) {
		if delay <= 0 {
			c.rateLimiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.rateLimiter = rate.NewLimiter(rate.Every(delay), 1)
	}
}

// WithRetries sets how many attempts are made per batch request
func WithRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.retries = n
		}
	}
}

// WithTimeout sets the per-request HTTP timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient creates a new Octopart API client
func NewClient(apiKey, baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		apiKey:      apiKey,
		baseURL:     baseURL,
		rateLimiter: rate.NewLimiter(rate.Every(defaultThrottleDelay), 1),
		retries:     defaultRetries,
		backoff:     exponentialBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetDebug toggles request/response debug logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(500<<(attempt-1)) * time.Millisecond
}

func (c *Client) debugLog(ctx context.Context, format string, args ...interface{}) {
	if !c.debug {
		return
	}
	logging.FromContext(ctx).Debug().Str("component", "octopart").Msgf(format, args...)
}

// doRequest executes an HTTP GET request with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "KiCost/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPricingAPIFailure, err)
	}

	return resp, nil
}

// readLimitedBody reads at most limit bytes of body
func readLimitedBody(body io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, limit))
}

// MatchParts sends one batch of part queries to the match endpoint.
// Transient failures are retried; any final failure fails the whole batch.
func (c *Client) MatchParts(ctx context.Context, queries []domain.PartQuery) ([]domain.MatchResult, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(queries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode queries: %w", err)
	}

	endpoint := c.baseURL + "/parts/match"
	params := url.Values{}
	params.Set("queries", string(payload))
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}
	reqURL := endpoint + "?" + params.Encode()

	logger := logging.FromContext(ctx)
	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		c.debugLog(ctx, "match request attempt %d with %d queries", attempt, len(queries))
		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn().Err(err).Int("attempt", attempt).Msg("octopart request failed")
			lastErr = err
			if err := c.sleep(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := readLimitedBody(resp.Body, maxErrorBodyBytes)
			resp.Body.Close()
			apiErr := &domain.APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Message: string(body)}
			if !apiErr.Retryable() {
				return nil, apiErr
			}
			logger.Warn().Int("status", resp.StatusCode).Int("attempt", attempt).Msg("octopart request rejected")
			lastErr = apiErr
			if err := c.sleep(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		var matchResp domain.MatchResponse
		err = json.NewDecoder(resp.Body).Decode(&matchResp)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrPricingAPIFailure, err)
		}

		c.debugLog(ctx, "match response with %d results", len(matchResp.Results))
		return matchResp.Results, nil
	}

	return nil, lastErr
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	if attempt >= c.retries {
		return nil
	}
	t := time.NewTimer(c.backoff(attempt))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
