package httpretry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	pkgerrors "github.com/angelmondragon/catalogo-presupuesto/pkg/errors"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultMaxRetries  = 3
	DefaultTimeout     = 5 * time.Second
	DefaultBackoffBase = time.Second

	drainLimit int64 = 4096
)

// Attempt outcomes reported to the Observer.
const (
	OutcomeOK        = "ok"
	OutcomeRetry     = "retry"
	OutcomeError     = "error"
	OutcomeExhausted = "exhausted"
)

// RequestFunc builds a fresh request for each attempt so bodies can be replayed.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// Observer receives one outcome per attempt.
type Observer func(outcome string)

// Client issues outbound calls with a per-attempt timeout and exponential backoff on
// 429, 5xx and transport failures.
type Client struct {
	httpClient  *http.Client
	maxRetries  int
	timeout     time.Duration
	backoffBase time.Duration
	observer    Observer
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMaxRetries sets the total number of attempts.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithTimeout sets the independent timeout applied to each attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBackoffBase sets the delay before the second attempt; later delays double.
func WithBackoffBase(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.backoffBase = d
		}
	}
}

func WithObserver(obs Observer) Option {
	return func(c *Client) {
		c.observer = obs
	}
}

func New(opts ...Option) *Client {
	client := &Client{
		httpClient:  &http.Client{},
		maxRetries:  DefaultMaxRetries,
		timeout:     DefaultTimeout,
		backoffBase: DefaultBackoffBase,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

type buildError struct{ err error }

func (e *buildError) Error() string { return e.err.Error() }
func (e *buildError) Unwrap() error { return e.err }

// Do runs build/send attempts until one yields a final response. Non-retryable statuses
// are returned as-is for the caller to inspect, and so is a retryable status on the last
// attempt. Exhaustion without a response yields a NETWORK_ERROR carrying the last
// transport failure.
func (c *Client) Do(ctx context.Context, build RequestFunc) (*http.Response, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfig, "http client not configured")
	}

	var (
		attempt int
		final   *http.Response
		lastErr error
	)

	backoff := retry.WithMaxRetries(uint64(c.maxRetries-1), retry.NewExponential(c.backoffBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		last := attempt == c.maxRetries-1
		attempt++

		resp, err := c.send(ctx, build)
		if err != nil {
			var be *buildError
			if errors.As(err, &be) {
				return err
			}
			lastErr = fmt.Errorf("attempt %d: %w", attempt, err)
			if last {
				c.observe(OutcomeExhausted)
				return lastErr
			}
			c.observe(OutcomeRetry)
			return retry.RetryableError(lastErr)
		}

		if Retryable(resp.StatusCode) && !last {
			drain(resp)
			c.observe(OutcomeRetry)
			return retry.RetryableError(fmt.Errorf("attempt %d: status %d", attempt, resp.StatusCode))
		}

		if resp.StatusCode >= 400 {
			c.observe(OutcomeError)
		} else {
			c.observe(OutcomeOK)
		}
		final = resp
		return nil
	})

	if final != nil {
		return final, nil
	}

	var be *buildError
	if errors.As(err, &be) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, be.err, "build request")
	}
	if lastErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetwork, lastErr, fmt.Sprintf("request failed after %d attempts", attempt))
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "request aborted")
	}
	return nil, pkgerrors.New(pkgerrors.CodeNetwork, "max retries exceeded")
}

func (c *Client) send(ctx context.Context, build RequestFunc) (*http.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	req, err := build(attemptCtx)
	if err != nil {
		cancel()
		return nil, &buildError{err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// Get issues a GET request with the given headers.
func (c *Client) Get(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	return c.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		copyHeader(req.Header, header)
		return req, nil
	})
}

// PostJSON marshals body once and replays it on each attempt.
func (c *Client) PostJSON(ctx context.Context, url string, header http.Header, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal request body")
	}
	return c.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		copyHeader(req.Header, header)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
}

// Retryable reports whether a status code triggers another attempt.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func (c *Client) observe(outcome string) {
	if c.observer != nil {
		c.observer(outcome)
	}
}

func copyHeader(dst, src http.Header) {
	for k, values := range src {
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
	_ = resp.Body.Close()
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
