// Package httpx provides the outbound HTTP client used for third-party APIs:
// bounded retries on transient failures and a per-host request budget.
package httpx

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/linkvault/internal/metrics"
)

// Config controls retries and rate limiting.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// RequestsPerSecond is the per-host budget; zero disables limiting.
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns the settings used for third-party APIs.
func DefaultConfig() Config {
	return Config{
		MaxRetries:        2,
		BaseDelay:         200 * time.Millisecond,
		MaxDelay:          2 * time.Second,
		RequestsPerSecond: 5,
		Burst:             5,
	}
}

// ShouldRetry retries network errors, 5xx server errors and 429s.
func ShouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return true
	}
	switch resp.StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// Transport is an http.RoundTripper that rate limits per host and retries
// transient failures of idempotent requests.
type Transport struct {
	base     http.RoundTripper
	executor failsafe.Executor[*http.Response]
	rps      float64
	burst    int
	limiters sync.Map
}

// NewTransport wraps base. A nil base uses a pooled default transport.
//
//nolint:bodyclose // *http.Response is a type parameter here, not a live response
func NewTransport(base http.RoundTripper, cfg Config) *Transport {
	if base == nil {
		base = newHTTPTransport()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	policy := retrypolicy.NewBuilder[*http.Response]().
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(ShouldRetry).
		Build()
	return &Transport{
		base:     base,
		executor: failsafe.With(policy),
		rps:      cfg.RequestsPerSecond,
		burst:    cfg.Burst,
	}
}

// NewClient returns an http.Client using a Transport over the default base.
func NewClient(cfg Config, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: NewTransport(nil, cfg),
		Timeout:   timeout,
	}
}

// RoundTrip implements http.RoundTripper. When retries are exhausted on a
// retryable status the last response is returned so callers see the status.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.wait(req); err != nil {
		return nil, err
	}
	if !replayable(req) {
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, fmt.Errorf("round trip: %w", err)
		}
		return resp, nil
	}

	var prev *http.Response
	resp, err := t.executor.WithContext(req.Context()).Get(func() (*http.Response, error) {
		if prev != nil {
			_ = prev.Body.Close()
			prev = nil
		}
		attempt := req.Clone(req.Context())
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewind body: %w", err)
			}
			attempt.Body = body
		}
		r, err := t.base.RoundTrip(attempt)
		prev = r
		return r, err
	})
	if resp != nil && resp.StatusCode > 0 {
		return resp, nil
	}
	if err != nil {
		return nil, fmt.Errorf("round trip %s: %w", req.URL.Host, err)
	}
	return resp, nil
}

func (t *Transport) wait(req *http.Request) error {
	if t.rps <= 0 || req.URL == nil {
		return nil
	}
	host := strings.ToLower(req.URL.Hostname())
	val, _ := t.limiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(t.rps), t.burst))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	start := time.Now()
	if err := limiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(req.URL.String(), waited)
	}
	return nil
}

func replayable(req *http.Request) bool {
	switch req.Method {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions:
		return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
	default:
		return false
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
