// Package fetch wraps outbound HTTP calls with per-attempt timeouts, retry
// with exponential backoff, and a circuit breaker. Both provider adapters go
// through it on the client side.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// BackoffConfig controls the retry schedule. MaxRetries counts retries after
// the first attempt; the delay before retry n is InitialInterval * 2^(n-1).
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
}

// Policy bundles the per-attempt timeout with the retry schedule. A timed-out
// attempt does not consume the next attempt's budget; every retry gets a
// fresh timeout window.
type Policy struct {
	AttemptTimeout time.Duration
	Backoff        BackoffConfig
}

// WeatherPolicy is the default policy for weather and search calls: 8s per
// attempt, up to 2 retries with 300ms/600ms backoff.
func WeatherPolicy() Policy {
	return Policy{
		AttemptTimeout: 8 * time.Second,
		Backoff:        BackoffConfig{MaxRetries: 2, InitialInterval: 300 * time.Millisecond},
	}
}

// IPGeoPolicy is the policy for the IP-geolocation fallback: 6s, single shot.
func IPGeoPolicy() Policy {
	return Policy{
		AttemptTimeout: 6 * time.Second,
		Backoff:        BackoffConfig{MaxRetries: 0, InitialInterval: 300 * time.Millisecond},
	}
}

var (
	errNoHTTPClient  = errors.New("fetch: http client not configured")
	errInvalidPolicy = errors.New("fetch: invalid backoff configuration")
	errCircuitOpen   = errors.New("fetch: circuit breaker open")

	// ErrRequestFailed is surfaced when retries are exhausted without a more
	// specific error to report.
	ErrRequestFailed = errors.New("fetch: request failed")
)

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: HTTP %d", e.Status)
}

// Client issues resilient GET requests. Root-relative targets are resolved
// against the configured origin on every attempt, so a stale base URL never
// outlives a retry.
type Client struct {
	http    *http.Client
	origin  string
	policy  Policy
	circuit *gobreaker.CircuitBreaker
}

// NewClient builds a Client around httpClient. origin is the base URL that
// root-relative targets resolve against; it may be empty when only absolute
// targets are used.
func NewClient(httpClient *http.Client, origin string, policy Policy) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "fetch " + origin,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &Client{
		http:    httpClient,
		origin:  strings.TrimRight(origin, "/"),
		policy:  policy,
		circuit: cb,
	}
}

// resolve maps a target onto an absolute URL. Re-invoked on every attempt.
func (c *Client) resolve(target string) string {
	if strings.HasPrefix(target, "/") && c.origin != "" {
		return c.origin + target
	}
	return target
}

// Get performs a GET against target and returns the response body. Failures
// (network error or non-2xx status) are retried per the policy; exhausting
// retries surfaces the last error. Every request is directed to bypass
// intermediate caches.
func (c *Client) Get(ctx context.Context, target string) ([]byte, error) {
	if c.http == nil {
		return nil, errNoHTTPClient
	}
	if c.policy.Backoff.MaxRetries < 0 || c.policy.Backoff.InitialInterval <= 0 {
		return nil, errInvalidPolicy
	}

	var lastErr error

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		body, err := c.attempt(ctx, c.resolve(target))
		if err == nil {
			return body, nil
		}
		if errors.Is(err, errCircuitOpen) {
			return nil, err
		}
		lastErr = err

		if attempt >= c.policy.Backoff.MaxRetries {
			if lastErr == nil {
				lastErr = ErrRequestFailed
			}
			return nil, lastErr
		}

		delay := c.policy.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// attempt runs one request inside its own timeout window and reads the body
// before the window closes.
func (c *Client) attempt(ctx context.Context, url string) ([]byte, error) {
	attemptCtx := ctx
	if c.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.policy.AttemptTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")

	result, err := c.circuit.Execute(func() (interface{}, error) {
		resp, execErr := c.http.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			io.Copy(io.Discard, resp.Body)
			return nil, &StatusError{Status: resp.StatusCode}
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("fetch: unexpected result type from circuit breaker")
	}
	return body, nil
}

// GetJSON performs Get and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, target string, out any) error {
	body, err := c.Get(ctx, target)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}
