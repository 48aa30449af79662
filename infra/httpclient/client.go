// Package httpclient is the retrying JSON client shared by every HTTP
// provider source.
package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/agriroute/core/logger"
)

// StatusError is returned for responses with a status code >= 400.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// Retryable reports whether the status denotes a transient fault.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500
}

// Config tunes a Client.
type Config struct {
	Timeout     time.Duration
	Retries     int
	BackoffBase time.Duration
}

// SetDefaults applies a 10s timeout, 3 attempts and a 500ms backoff base.
func (c *Config) SetDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
}

// Client performs HTTP calls with bounded retries and exponential backoff.
// Client errors (4xx) are returned immediately.
type Client struct {
	http    *http.Client
	retries int
	base    time.Duration
	log     logger.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// New builds a Client from cfg.
func New(cfg Config, log logger.Logger) *Client {
	cfg.SetDefaults()
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		retries: cfg.Retries,
		base:    cfg.BackoffBase,
		log:     logger.OrNop(log),
		sleep:   sleepCtx,
	}
}

// Backoff returns the wait before attempt n+1, base * 2^(n-1).
func (c *Client) Backoff(attempt int) time.Duration {
	return c.base * time.Duration(1<<(attempt-1))
}

// Do executes the request built by makeReq, retrying transient failures.
// makeReq is called once per attempt so bodies can be rebuilt.
func (c *Client) Do(ctx context.Context, makeReq func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req, err := makeReq(ctx)
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}
		resp, err := c.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable(err) || attempt == c.retries {
			return nil, lastErr
		}
		wait := c.Backoff(attempt)
		c.log.Warnf("%s %s attempt %d failed, retrying in %s: %v", req.Method, req.URL.Host, attempt, wait, err)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// GetJSON performs a GET with the given query and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	return c.DoJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}, out)
}

// DoJSON runs Do and decodes a JSON response body into out.
func (c *Client) DoJSON(ctx context.Context, makeReq func(ctx context.Context) (*http.Request, error), out any) error {
	resp, err := c.Do(ctx, makeReq)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// transport errors such as EOF or reset connections
	return !errors.Is(err, context.DeadlineExceeded)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
