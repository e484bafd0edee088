// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/dirsync/internal/logging"
	"github.com/tomtom215/dirsync/internal/metrics"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 32 << 20

var (
	// ErrCircuitOpen is returned when the API's circuit breaker rejects the attempt.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// errTransient marks an attempt whose response was classified Retry.
	errTransient = errors.New("transient API failure")
)

// Request is one logical API call. Body is resent unchanged on every attempt.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the final attempt's response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// Attempts is the number of attempts made, including this one.
	Attempts int
}

// Config configures a Client.
type Config struct {
	// Name identifies the API in logs, metrics and the breaker name.
	Name string

	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int

	// BaseDelay is the wait before the first retry. Attempt n waits BaseDelay*2^n.
	BaseDelay time.Duration

	// Timeout bounds a single attempt, including reading the body.
	Timeout time.Duration

	// RatePerSecond and Burst configure the token bucket shared by all
	// callers of this client. Zero disables limiting.
	RatePerSecond float64
	Burst         int

	// Classify decides success, retry or failure. Defaults to ClassifyStatus.
	Classify Classifier
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport client, for example with
// an oauth2 client that injects credentials.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// Client executes requests with envelope-aware retries, rate limiting and a
// circuit breaker. It is safe for concurrent use.
type Client struct {
	cfg         Config
	http        *http.Client
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker[*Response]
	breakerName string
}

// New creates a Client. Zero values in cfg fall back to 3 retries, a 1s base
// delay and a 30s timeout.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Name == "" {
		cfg.Name = "api"
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Classify == nil {
		cfg.Classify = ClassifyStatus
	}

	c := &Client{
		cfg:         cfg,
		http:        &http.Client{},
		breakerName: cfg.Name + "-api",
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	c.breaker = newBreaker(c.breakerName)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the configured API name.
func (c *Client) Name() string {
	return c.cfg.Name
}

// MaxAttempts returns the total attempt budget of one Do call.
func (c *Client) MaxAttempts() int {
	return c.cfg.MaxRetries + 1
}

// Do executes req, retrying transient failures with exponential backoff.
//
// Responses the classifier marks Success or Fail are returned immediately.
// When the retry budget is exhausted the last response is returned with a nil
// error, so callers always inspect the envelope themselves. An error is
// returned only when no response was received at all, when the circuit
// breaker is open, or when ctx is done.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	var (
		last     *Response
		attempts int
	)

	operation := func() (*Response, error) {
		attempts++

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
			}
		}

		resp, err := c.execute(func() (*Response, error) {
			return c.attempt(ctx, req)
		})
		if resp != nil {
			resp.Attempts = attempts
			last = resp
		}

		switch {
		case err == nil:
			return resp, nil
		case errors.Is(err, ErrCircuitOpen), ctx.Err() != nil:
			return nil, backoff.Permanent(err)
		default:
			return resp, err
		}
	}

	notify := func(err error, next time.Duration) {
		metrics.RecordAPIRetry(c.cfg.Name)
		event := logging.Ctx(ctx).Warn().
			Str("api", c.cfg.Name).
			Str("method", req.Method).
			Int("attempt", attempts).
			Dur("backoff", next)
		if last != nil && errors.Is(err, errTransient) {
			event = event.Int("status", last.StatusCode)
		} else {
			event = event.Err(err)
		}
		event.Msg("Retrying API request")
	}

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.MaxAttempts())),
		backoff.WithMaxElapsedTime(c.maxElapsed()),
		backoff.WithNotify(notify),
	)
	if err == nil {
		return resp, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, c.cfg.Name, ctxErr)
	}
	if errors.Is(err, ErrCircuitOpen) {
		return nil, fmt.Errorf("%s %s: %w", req.Method, c.cfg.Name, err)
	}
	if last != nil {
		logging.Ctx(ctx).Warn().
			Str("api", c.cfg.Name).
			Int("attempts", last.Attempts).
			Int("status", last.StatusCode).
			Msg("Retries exhausted, returning last response")
		return last, nil
	}
	return nil, fmt.Errorf("%s %s: no response after %d attempts: %w", req.Method, c.cfg.Name, attempts, err)
}

// attempt performs a single HTTP exchange.
func (c *Client) attempt(ctx context.Context, req *Request) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var body io.Reader = http.NoBody
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, req.URL, body)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.RecordAPIAttempt(c.cfg.Name, "error", time.Since(start))
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		metrics.RecordAPIAttempt(c.cfg.Name, "error", time.Since(start))
		return nil, fmt.Errorf("read response: %w", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}

	verdict := c.cfg.Classify(resp)
	metrics.RecordAPIAttempt(c.cfg.Name, verdict.String(), time.Since(start))

	logging.Ctx(ctx).Trace().
		Str("api", c.cfg.Name).
		Str("method", req.Method).
		Int("status", resp.StatusCode).
		Str("verdict", verdict.String()).
		Msg("API attempt")

	if verdict == Retry {
		return resp, errTransient
	}
	return resp, nil
}

// newBackOff returns the retry schedule: BaseDelay, 2*BaseDelay, 4*BaseDelay...
// without jitter.
func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.BaseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = c.cfg.BaseDelay << uint(c.cfg.MaxRetries)
	bo.Reset()
	return bo
}

// maxElapsed bounds the whole Do call generously: every wait of the schedule
// plus every attempt timing out.
func (c *Client) maxElapsed() time.Duration {
	waits := c.cfg.BaseDelay << uint(c.cfg.MaxRetries+1)
	return waits + time.Duration(c.MaxAttempts())*c.cfg.Timeout + time.Minute
}
