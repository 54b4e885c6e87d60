// Package fetch downloads image bytes with a single bounded attempt.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultMaxBytes = 50 << 20
	userAgent       = "lienzo/1.0"
)

// Fetcher is what the batch processor needs from Client.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Client performs GET requests. There are no retries.
type Client struct {
	http     *http.Client
	timeout  time.Duration
	maxBytes int64
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request, connection and body read included.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxBytes caps the accepted body size.
func WithMaxBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithHTTPClient replaces the transport client, e.g. httptest's.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{},
		timeout:  DefaultTimeout,
		maxBytes: DefaultMaxBytes,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NetworkError covers every way a fetch can fail: transport faults,
// timeouts, non-2xx responses and oversized bodies.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("GET %s: http %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Fetch returns the full body of url.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4<<10))
		return nil, &NetworkError{URL: url, StatusCode: res.StatusCode, Err: fmt.Errorf("unexpected status %s", res.Status)}
	}

	if res.ContentLength > c.maxBytes {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("body of %d bytes exceeds limit of %d", res.ContentLength, c.maxBytes)}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, c.maxBytes+1))
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	if int64(len(body)) > c.maxBytes {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("body exceeds limit of %d bytes", c.maxBytes)}
	}
	return body, nil
}
