// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the discovery and
// enrichment clients: 429 backoff, per-service throttling, and request metrics.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/pdb-tracker/internal/logger"
	"github.com/pdiddy/pdb-tracker/internal/metrics"
	"github.com/pdiddy/pdb-tracker/internal/throttle"
	"github.com/pdiddy/pdb-tracker/pkg/types"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// HTTP 429 responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// maxRetryAfter caps a server-supplied Retry-After.
const maxRetryAfter = 2 * time.Minute

const defaultMaxRetries = 5

// WaitFunc blocks until the next attempt may be sent.
type WaitFunc func(ctx context.Context) error

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests) with exponential backoff: RetryBaseDelay, doubled each attempt.
// A Retry-After header given in seconds replaces the computed delay.
//
// When wait is non-nil it is called before every attempt, retries included,
// so throttling covers the full request stream. When maxRetries is 0 the
// default (5) is used. On each 429 the response body is drained and closed
// before sleeping. If the context is cancelled during a wait the function
// returns ctx.Err(). After exhausting retries the last 429 response is
// returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int, wait WaitFunc) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	log := logger.FromContext(ctx)

	for attempt := 0; ; attempt++ {
		if wait != nil {
			if err := wait(ctx); err != nil {
				return nil, err
			}
		}

		attemptReq := req.Clone(ctx)
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		if attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		if ra, ok := retryAfter(resp.Header.Get("Retry-After")); ok {
			backoff = ra
		}
		log.Info("rate limited, retrying",
			zap.String("url", req.URL.String()),
			zap.Duration("backoff", backoff),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// retryAfter parses a delay-seconds Retry-After value.
func retryAfter(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d, true
}

// Client bundles the transport settings every upstream call shares.
type Client struct {
	HTTP       *http.Client
	UserAgent  string
	MaxRetries int
	Throttle   *throttle.Throttle
	Metrics    *metrics.Recorder
}

// NewClient builds a Client from stage HTTP settings.
func NewClient(cfg types.HTTPConfig, th *throttle.Throttle, m *metrics.Recorder) *Client {
	return &Client{
		HTTP:       &http.Client{Timeout: cfg.Timeout},
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
		Throttle:   th,
		Metrics:    m,
	}
}

// Do sends req to the named service, applying the throttle and 429 retries,
// and records the outcome.
func (c *Client) Do(ctx context.Context, service string, req *http.Request) (*http.Response, error) {
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	start := time.Now()
	resp, err := DoWithRetry(ctx, httpClient, req, c.MaxRetries, c.Throttle.Limiter(service))
	code := 0
	if resp != nil {
		code = resp.StatusCode
	}
	c.Metrics.ObserveRequest(service, code, time.Since(start))
	return resp, err
}
