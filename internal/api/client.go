// Package api is the client of the expenses REST API. Client exposes one
// blocking method per remote operation; Async wraps the same operations as
// futures that report failures to an optional callback.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"expensetracker/internal/log"
)

const (
	// DefaultTimeout bounds a single request when no http.Client is supplied.
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 4 << 20
)

// Client sends authenticated requests to the expenses API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *Session
	metrics    *Metrics
	logger     *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its transport is still
// wrapped for request tracing.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for baseURL (DefaultBaseURL when empty) that
// authenticates with session. A nil session starts logged out.
func NewClient(baseURL string, session *Session, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if session == nil {
		session = NewSession()
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		session:    session,
		logger:     log.FromContext(context.Background()).WithComponent(log.ComponentAPI),
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := *c.httpClient
	hc.Transport = newTracingTransport(hc.Transport, c.logger)
	c.httpClient = &hc

	return c
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *Session {
	return c.session
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends one request. body is JSON-encoded when non-nil and the response
// is decoded into out when out is non-nil and the body is not empty.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	start := time.Now()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if auth := c.session.authorization(); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(op, outcomeTransport, time.Since(start))
		return fmt.Errorf("%s: %s %s: %w: %w", op, method, path, ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.metrics.observe(op, outcomeTransport, time.Since(start))
		return fmt.Errorf("%s: read response: %w: %w", op, ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.observe(op, outcomeHTTPError, time.Since(start))
		apiErr := &Error{Op: op, Method: method, Path: path, StatusCode: resp.StatusCode}
		// The payload is best effort: proxies answer with HTML.
		_ = json.Unmarshal(data, &apiErr.Payload)
		return apiErr
	}

	c.metrics.observe(op, outcomeSuccess, time.Since(start))

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrDecode, err)
	}
	return nil
}

func call[T any](ctx context.Context, c *Client, op, method, path string, body any) (T, error) {
	var out T
	err := c.do(ctx, op, method, path, body, &out)
	return out, err
}
