// Package fetch provides the retrying HTTP client shared by every remote
// call: listing pages, single posts, project metadata and asset downloads.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Options configures a Client.
type Options struct {
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	UserAgent      string
	Headers        map[string]string
}

// Client wraps http.Client with bounded exponential-backoff retry and
// per-platform default headers.
type Client struct {
	httpClient *http.Client
	opts       Options
}

// StatusError reports a non-2xx response that was surfaced to the caller.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

func NewClient(opts Options) *Client {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.BaseDelay == 0 {
		opts.BaseDelay = time.Second
	}
	if opts.MaxDelay == 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: opts.ConnectTimeout,
		}).DialContext,
		ResponseHeaderTimeout: opts.ReadTimeout,
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		opts:       opts,
	}
}

// retryable reports whether a failed attempt may be tried again. Client
// errors other than 429 would fail identically on every attempt.
func retryable(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return false
	}
	return resp.StatusCode >= 400
}

// Get fetches url, retrying transient failures with exponential backoff.
// The returned response always has a 2xx status; everything else is an error.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	var lastErr error
	delay := c.opts.BaseDelay

	for attempt := 0; attempt < c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.opts.MaxDelay {
				delay = c.opts.MaxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		c.applyHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err == nil && resp.StatusCode < 400 {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = &StatusError{StatusCode: resp.StatusCode, URL: url}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		if !retryable(resp, err) {
			return nil, lastErr
		}

		slog.Debug("Retrying request", "url", url, "attempt", attempt+1, "error", lastErr)
	}

	return nil, lastErr
}

func (c *Client) applyHeaders(req *http.Request) {
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	for k, v := range c.opts.Headers {
		req.Header.Set(k, v)
	}
}
