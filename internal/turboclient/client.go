// Package turboclient implements the Resilient HTTP Client (spec.md §4.1):
// a single pooled connection to the backing project-management service,
// exponential-backoff retries on transient failures, a per-client circuit
// breaker, and a structured error taxonomy with agent-facing repair hints.
//
// Shape grounded on batalabs-muxd/internal/provider/anthropic.go's shared,
// lazily-built http.Client/Transport and
// batalabs-muxd/internal/provider/errors.go's APIError/IsRetryable/
// parseRetryAfter, generalized from a single Anthropic endpoint to an
// arbitrary JSON CRUD backend, plus batalabs-muxd/internal/agent/retry.go's
// exponential-backoff loop shape.
package turboclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/turboagent/turbo-agent/internal/metrics"
	"github.com/turboagent/turbo-agent/internal/toolerrors"
)

// Config configures a Client. Zero values fall back to the spec.md §4.1
// defaults.
type Config struct {
	// BaseURL is the backing service's root, e.g. "http://localhost:8001/api/v1".
	BaseURL string
	// BearerToken, if non-empty, is sent as "Authorization: Bearer <token>".
	BearerToken string

	// MaxRetries is the number of *additional* attempts after the first
	// (default 3, so 4 total).
	MaxRetries int
	// BackoffBase is the initial retry delay (default 1s). A zero value is
	// honoured verbatim — tests rely on instantaneous retries.
	BackoffBase time.Duration
	// BackoffJitter adds up to +/-50% jitter to each computed backoff when true.
	BackoffJitter bool

	// CircuitThreshold is the number of consecutive failures before the
	// breaker opens (default 5).
	CircuitThreshold int
	// CircuitRecovery is how long the breaker stays open before admitting a
	// half-open probe (default 30s).
	CircuitRecovery time.Duration

	// ConnectTimeout, ReadTimeout, WriteTimeout bound a single HTTP round
	// trip (defaults 5s / 30s / 10s per spec.md §4.1).
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	// Metrics is optional; a nil Recorder disables metrics entirely.
	Metrics *metrics.Recorder
	// Logger is optional; a nil Logger disables logging entirely.
	Logger zerolog.Logger

	// Name identifies this client instance in metrics and logs (e.g. "turbo-api").
	Name string
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.CircuitThreshold <= 0 {
		c.CircuitThreshold = 5
	}
	if c.CircuitRecovery <= 0 {
		c.CircuitRecovery = 30 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.Name == "" {
		c.Name = "turbo-api"
	}
	return c
}

// Client is a pooled, resilient JSON HTTP client for the backing service.
// The underlying transport is created lazily on first use (see httpClient)
// and reused for the client's lifetime.
type Client struct {
	cfg     Config
	breaker *circuitBreaker

	mu   sync.Mutex
	http *http.Client
}

// New constructs a Client. The underlying transport is not created until the
// first request.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:     cfg,
		breaker: newCircuitBreaker(cfg.CircuitThreshold, cfg.CircuitRecovery),
	}
}

// httpClient lazily builds the pooled *http.Client. Grounded on
// batalabs-muxd/internal/provider/anthropic.go's module-level
// streamHTTPClient: one Transport, reused, with explicit idle-connection
// bounds instead of Go's defaults.
func (c *Client) httpClient() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.http != nil {
		return c.http
	}
	dialer := &net.Dialer{Timeout: c.cfg.ConnectTimeout}
	c.http = &http.Client{
		Timeout: c.cfg.ReadTimeout,
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   c.cfg.ConnectTimeout,
			ResponseHeaderTimeout: c.cfg.ReadTimeout,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConnsPerHost:   4,
			ForceAttemptHTTP2:     true,
		},
		// Follow redirects (spec.md §4.1): the default CheckRedirect already
		// follows up to 10 redirects; nil leaves that default in place.
	}
	return c.http
}

// Close idempotently releases pooled connections. Safe to call when the
// transport was never created, and safe to call twice.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.http == nil {
		return
	}
	if t, ok := c.http.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	c.http = nil
}

// Get issues a GET request with optional query parameters and decodes the
// JSON response body into out (which may be nil to discard the body).
func (c *Client) Get(ctx context.Context, path string, query map[string]string, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST request with a JSON body and decodes the JSON response
// into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

// Patch issues a PATCH request with a JSON body and decodes the JSON
// response into out.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, out)
}

// normalizePath guarantees the path ends with "/" (spec.md §4.1) regardless
// of how the caller wrote it, and renders it against the client's BaseURL.
func (c *Client) normalizePath(path string, query map[string]string) (string, error) {
	path = strings.TrimSuffix(path, "/") + "/"
	base := strings.TrimSuffix(c.cfg.BaseURL, "/")
	full := base + "/" + strings.TrimPrefix(path, "/")
	u, err := url.Parse(full)
	if err != nil {
		return "", err
	}
	if len(query) > 0 {
		q := u.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// do executes one logical call: it retries transient failures with
// exponential backoff, consults and updates the circuit breaker, and maps
// any terminal failure into a *toolerrors.Error.
func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body, out any) error {
	reqURL, err := c.normalizePath(path, query)
	if err != nil {
		return toolerrors.Unexpected("building request URL", err)
	}

	if ok, remaining := c.breaker.allow(time.Now()); !ok {
		c.cfg.Metrics.HTTPOutcome("circuit_open")
		return toolerrors.CircuitOpen(fmt.Sprintf("%.0f", remaining.Seconds()))
	}

	var bodyBytes []byte
	if body != nil {
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return toolerrors.Unexpected("encoding request body", err)
		}
	}

	wait := c.cfg.BackoffBase
	attempts := c.cfg.MaxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, respBody, reqErr := c.attempt(ctx, method, reqURL, bodyBytes)
		if reqErr == nil && resp.StatusCode < 300 {
			c.breaker.recordSuccess()
			c.cfg.Metrics.HTTPOutcome("success")
			if out != nil && len(respBody) > 0 {
				if err := json.Unmarshal(respBody, out); err != nil {
					return toolerrors.Unexpected("decoding response body", err)
				}
			}
			return nil
		}

		retryable, classified := c.classify(method, path, reqErr, resp, respBody, attempt)
		lastErr = classified
		if !retryable || attempt == attempts {
			c.breaker.recordFailure(time.Now())
			return classified
		}

		// Each failed attempt in a retry burst counts toward the breaker's
		// consecutive-failure counter (spec.md §9 open question: the source's
		// retry counter and circuit-breaker counter overlap; this
		// implementation keeps that overlap rather than collapsing a burst
		// into "one failure per logical call").
		c.breaker.recordFailure(time.Now())
		c.cfg.Metrics.HTTPRetry(retryReason(reqErr, resp))

		delay := wait
		if c.cfg.BackoffJitter && delay > 0 {
			delay = jitter(delay)
		}
		if delay > 0 {
			select {
			case <-ctx.Done():
				return toolerrors.Unexpected("request cancelled during retry backoff", ctx.Err())
			case <-time.After(delay):
			}
		}
		wait *= 2
	}
	return lastErr
}

func jitter(d time.Duration) time.Duration {
	// +/-50% jitter around d, grounded on the configurable-jitter note in
	// spec.md §4.1 ("optionally jittered").
	half := float64(d) / 2
	return time.Duration(half + rand.Float64()*float64(d))
}

func retryReason(err error, resp *http.Response) string {
	if err != nil {
		return "connect"
	}
	if resp != nil {
		return fmt.Sprintf("%d", resp.StatusCode)
	}
	return "unknown"
}

// attempt performs exactly one HTTP round trip.
func (c *Client) attempt(ctx context.Context, method, reqURL string, bodyBytes []byte) (*http.Response, []byte, error) {
	var reqBody io.Reader
	if bodyBytes != nil {
		reqBody = bytes.NewReader(bodyBytes)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return resp, nil, readErr
	}
	return resp, respBody, nil
}
