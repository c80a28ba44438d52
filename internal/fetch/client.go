// Package fetch pulls the transit and weather JSON feeds into the store.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"inkhat/internal/logging"
	"inkhat/internal/metrics"
)

const (
	defaultTimeout      = 10 * time.Second
	maxResponseBodySize = 4 << 20
	userAgent           = "inkhat/1.0"
)

// ErrOffline is returned when the network check fails before a request is made.
var ErrOffline = errors.New("fetch: network unavailable")

// StatusError captures a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("fetch: %s returned status %d", e.URL, e.StatusCode)
	if b := strings.TrimSpace(e.Body); b != "" {
		if len(b) > 120 {
			b = b[:120]
		}
		msg += ": " + b
	}
	return msg
}

// ParseError wraps a body that could not be decoded.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("fetch: decode %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NetworkChecker reports whether the uplink is usable.
type NetworkChecker interface {
	Online(ctx context.Context) bool
}

// NetworkCheckFunc adapts a function to NetworkChecker.
type NetworkCheckFunc func(ctx context.Context) bool

func (f NetworkCheckFunc) Online(ctx context.Context) bool { return f(ctx) }

// Fetcher refreshes one dataset in the store.
type Fetcher interface {
	Fetch(ctx context.Context) error
}

// Client performs the blocking GET and JSON decode shared by both fetchers.
type Client struct {
	http    *http.Client
	network NetworkChecker
	log     *logging.StructuredLogger
	metrics *metrics.Collector
	timeout time.Duration
	now     func() time.Time
}

// Option mutates the client during construction.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithNetworkChecker(n NetworkChecker) Option {
	return func(c *Client) { c.network = n }
}

func WithLogger(l *logging.StructuredLogger) Option {
	return func(c *Client) { c.log = l }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithClock sets the time source used for "updated at" stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{},
		timeout: defaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	return c
}

// getJSON runs one fetch for source and decodes the body into out. The
// outcome is logged and counted; out is only valid when err is nil.
func (c *Client) getJSON(ctx context.Context, source, url string, out interface{}) (err error) {
	ctx = logging.WithRequestID(ctx)
	timer := c.metrics.FetchTimer(source)
	defer func() {
		timer.ObserveDuration()
		c.metrics.RecordFetch(source, outcome(err))
		if err != nil {
			c.log.Error(ctx, "[FETCH_ERROR] "+source, logging.Fields{"url": url}, err)
		} else {
			c.log.Debug(ctx, "[FETCH] "+source+" ok", logging.Fields{"url": url})
		}
	}()

	if c.network != nil && !c.network.Online(ctx) {
		return ErrOffline
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("fetch: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch: execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("fetch: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: url, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ParseError{URL: url, Err: err}
	}
	return nil
}

func outcome(err error) string {
	var se *StatusError
	var pe *ParseError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrOffline):
		return "offline"
	case errors.As(err, &se):
		return "status"
	case errors.As(err, &pe):
		return "parse"
	default:
		return "error"
	}
}
