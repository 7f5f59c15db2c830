package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func statusSequence(t *testing.T, codes ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(hits.Add(1))
		code := codes[len(codes)-1]
		if n <= len(codes) {
			code = codes[n-1]
		}
		w.WriteHeader(code)
		_, _ = w.Write([]byte(http.StatusText(code)))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestTransportRetriesServerErrors(t *testing.T) {
	t.Parallel()

	srv, hits := statusSequence(t, http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusOK)
	client := &http.Client{Transport: NewTransport(nil, fastConfig())}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int32(3), hits.Load())
}

func TestTransportReturnsLastResponseWhenExhausted(t *testing.T) {
	t.Parallel()

	srv, hits := statusSequence(t, http.StatusTooManyRequests)
	client := &http.Client{Transport: NewTransport(nil, fastConfig())}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, int32(3), hits.Load())
}

func TestTransportDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	srv, hits := statusSequence(t, http.StatusNotFound)
	client := &http.Client{Transport: NewTransport(nil, fastConfig())}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, int32(1), hits.Load())
}

func TestTransportDoesNotRetryPost(t *testing.T) {
	t.Parallel()

	srv, hits := statusSequence(t, http.StatusInternalServerError)
	client := &http.Client{Transport: NewTransport(nil, fastConfig())}

	resp, err := client.Post(srv.URL, "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, int32(1), hits.Load())
}

func TestTransportRateLimitHonorsContext(t *testing.T) {
	t.Parallel()

	srv, _ := statusSequence(t, http.StatusOK)
	cfg := fastConfig()
	cfg.RequestsPerSecond = 0.001
	cfg.Burst = 1
	client := &http.Client{Transport: NewTransport(nil, cfg)}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	_, err = client.Do(req)
	require.Error(t, err)
}

func TestShouldRetry(t *testing.T) {
	t.Parallel()

	require.True(t, ShouldRetry(nil, context.DeadlineExceeded))
	require.True(t, ShouldRetry(nil, nil))
	require.True(t, ShouldRetry(&http.Response{StatusCode: http.StatusGatewayTimeout}, nil))
	require.False(t, ShouldRetry(&http.Response{StatusCode: http.StatusForbidden}, nil))
	require.False(t, ShouldRetry(&http.Response{StatusCode: http.StatusOK}, nil))
}
