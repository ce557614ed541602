// Package net provides HTTP client functionality with rate-limit retry and a
// circuit breaker for making requests to Horizon and SofizPay services.
//
// The Client struct offers configurable timeout, retry attempts, and a fixed
// delay between attempts. Retries fire only on HTTP 429 (Horizon rate
// limiting); any other error status propagates immediately carrying the
// response status and body. A simple circuit breaker prevents cascading
// failures when a service is down.
//
// Example usage:
//
//	client := net.NewClient(
//	    net.WithTimeout(20*time.Second),
//	    net.WithMaxRetries(5),
//	    net.WithRetryDelay(2*time.Second),
//	)
//	resp, err := client.Get(ctx, "https://horizon.stellar.org/...")
package net

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sofizpay/sdk-go/errors"
)

// Default configuration values
const (
	defaultTimeout      = 30 * time.Second
	defaultMaxRetries   = 3
	defaultRetryDelay   = 1 * time.Second
	defaultFailureLimit = 5
	defaultResetTimeout = 60 * time.Second
)

// Client is an HTTP client with rate-limit retry, timeout, and circuit
// breaker capabilities.
type Client struct {
	httpClient     *http.Client
	maxRetries     int
	retryDelay     time.Duration
	circuitBreaker *circuitBreaker
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout (default: 30s).
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithMaxRetries sets the total number of attempts made on rate limiting
// (default: 3).
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the fixed delay between attempts (default: 1s).
// The delay does not grow between attempts.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		circuitBreaker: &circuitBreaker{
			failureLimit: defaultFailureLimit,
			resetTimeout: defaultResetTimeout,
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Response wraps a successful HTTP response with convenience methods.
type Response struct {
	*http.Response
}

// JSON decodes the response body into v and closes the body.
func (r *Response) JSON(v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.NewCoreError(errors.NETWORK_ERROR, "failed to decode response JSON", err)
	}
	return nil
}

// Get performs an HTTP GET request with rate-limit retry and circuit breaker
// logic. Responses with status >= 400 are returned as errors carrying the
// status and body; 429 is retried up to the attempt limit with a fixed delay
// between attempts.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	// Check circuit breaker
	if !c.circuitBreaker.allowRequest() {
		return nil, errors.NewCoreError(errors.CIRCUIT_OPEN, "circuit breaker is open", nil)
	}

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, errors.NewCoreError(errors.NETWORK_ERROR, "failed to create GET request", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.circuitBreaker.recordFailure()
			return nil, errors.NewCoreError(
				errors.NETWORK_ERROR,
				fmt.Sprintf("request to %s failed", url),
				err,
			)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.maxRetries {
			drain(resp)
			if err := c.wait(ctx); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode >= 400 {
			body := readBody(resp)
			c.circuitBreaker.recordFailure()
			code := errors.NETWORK_ERROR
			if resp.StatusCode == http.StatusTooManyRequests {
				code = errors.RETRY_EXHAUSTED
			}
			e := errors.NewCoreError(
				code,
				fmt.Sprintf("request returned status %d: %s", resp.StatusCode, body),
				nil,
			)
			e.Context["status"] = resp.StatusCode
			e.Context["body"] = body
			return nil, e
		}

		c.circuitBreaker.recordSuccess()
		return &Response{resp}, nil
	}

	// Unreachable: the final attempt always returns above.
	return nil, errors.NewCoreError(errors.RETRY_EXHAUSTED, "unexpected retry exhaustion", nil)
}

// GetJSON performs a GET request and decodes the response body into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	return resp.JSON(v)
}

// StatusCode extracts the HTTP status carried by an error returned from Get,
// or 0 when the error carries none.
func StatusCode(err error) int {
	var sdkErr *errors.SDKError
	if !errors.As(err, &sdkErr) {
		return 0
	}
	if status, ok := sdkErr.Context["status"].(int); ok {
		return status
	}
	return 0
}

// wait sleeps for the fixed retry delay, observing context cancellation.
func (c *Client) wait(ctx context.Context) error {
	select {
	case <-time.After(c.retryDelay):
		return nil
	case <-ctx.Done():
		return errors.NewCoreError(errors.NETWORK_ERROR, "request cancelled during retry delay", ctx.Err())
	}
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func readBody(resp *http.Response) string {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8192))
	if err != nil {
		return ""
	}
	return string(body)
}

// circuitBreaker implements a simple circuit breaker pattern.
type circuitBreaker struct {
	mu           sync.RWMutex
	failures     int
	lastFailTime time.Time
	failureLimit int
	resetTimeout time.Duration
	state        circuitState
}

type circuitState int

const (
	stateClosed circuitState = iota
	stateOpen
)

// allowRequest checks if the circuit breaker allows the request to proceed.
func (cb *circuitBreaker) allowRequest() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if cb.state == stateClosed {
		return true
	}

	// Check if reset timeout has elapsed
	if time.Since(cb.lastFailTime) > cb.resetTimeout {
		return true
	}

	return false
}

// recordSuccess records a successful request and may close the circuit.
func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = stateClosed
}

// recordFailure records a failed request and may open the circuit.
func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailTime = time.Now()

	if cb.failures >= cb.failureLimit {
		cb.state = stateOpen
	}
}
