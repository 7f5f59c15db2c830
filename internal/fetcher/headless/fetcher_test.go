package headless

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/linkvault/internal/enrichment"
)

type recordingSleep struct {
	delays []time.Duration
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func newTestRetrier(s *recordingSleep) *Retrier {
	r := NewRetrier(0, 0, nil)
	r.Sleep = s.sleep
	return r
}

type flakyPage struct {
	failures    int
	navigations int
	deadlines   []time.Duration
	html        string
}

func (p *flakyPage) SetUserAgent(context.Context, string) error { return nil }

func (p *flakyPage) Navigate(ctx context.Context, _ string) error {
	p.navigations++
	if dl, ok := ctx.Deadline(); ok {
		p.deadlines = append(p.deadlines, time.Until(dl))
	}
	if p.navigations <= p.failures {
		return errors.New("net::ERR_CONNECTION_RESET")
	}
	return nil
}

func (p *flakyPage) HTML(context.Context) (string, error) { return p.html, nil }

func (p *flakyPage) Evaluate(context.Context, string, any) error { return nil }

func (p *flakyPage) Screenshot(context.Context) ([]byte, error) { return nil, nil }

func (p *flakyPage) Close() error { return nil }

func TestRetrierSucceedsAfterTwoFailures(t *testing.T) {
	t.Parallel()

	s := &recordingSleep{}
	r := newTestRetrier(s)
	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, s.delays)
}

func TestRetrierExhaustionIsServiceUnavailable(t *testing.T) {
	t.Parallel()

	s := &recordingSleep{}
	r := newTestRetrier(s)
	calls := 0
	root := errors.New("dial tcp: connection refused")
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return root
	})
	require.Error(t, err)
	require.Equal(t, 3, calls)
	require.True(t, enrichment.IsServiceUnavailable(err))
	require.Equal(t, http.StatusServiceUnavailable, enrichment.StatusOf(err))
	require.ErrorIs(t, err, root)
	require.Len(t, s.delays, 2)
}

func TestRetrierBackoffDoubles(t *testing.T) {
	t.Parallel()

	r := NewRetrier(5, time.Second, nil)
	require.Equal(t, time.Second, r.Backoff(0))
	require.Equal(t, 2*time.Second, r.Backoff(1))
	require.Equal(t, 4*time.Second, r.Backoff(2))
	require.Equal(t, 8*time.Second, r.Backoff(3))
}

func TestRetrierStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	r := newTestRetrier(&recordingSleep{})
	calls := 0
	err := r.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("navigation aborted")
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
	require.False(t, enrichment.IsServiceUnavailable(err))
}

func TestFetchHTMLRetriesNavigation(t *testing.T) {
	t.Parallel()

	s := &recordingSleep{}
	f := New(Config{}, nil).WithRetrier(newTestRetrier(s))
	page := &flakyPage{failures: 2, html: "<html><body>ok</body></html>"}

	html, err := f.FetchHTML(context.Background(), page, "https://example.com")
	require.NoError(t, err)
	require.Equal(t, page.html, html)
	require.Equal(t, 3, page.navigations)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, s.delays)
	for _, d := range page.deadlines {
		require.LessOrEqual(t, d, 30*time.Second)
		require.Greater(t, d, 25*time.Second)
	}
}

func TestNavigateGivesUpAfterThreeAttempts(t *testing.T) {
	t.Parallel()

	f := New(Config{}, nil).WithRetrier(newTestRetrier(&recordingSleep{}))
	page := &flakyPage{failures: 10}

	err := f.Navigate(context.Background(), page, "https://example.com")
	require.True(t, enrichment.IsServiceUnavailable(err))
	require.Equal(t, 3, page.navigations)
}
