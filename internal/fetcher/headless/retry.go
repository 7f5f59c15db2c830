package headless

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/linkvault/internal/enrichment"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Retrier retries an operation with doubling delays between attempts.
type Retrier struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       SleepFunc
	Logger      *zap.Logger
}

// NewRetrier returns a Retrier using three attempts and a one second base delay
// unless overridden.
func NewRetrier(maxAttempts int, baseDelay time.Duration, logger *zap.Logger) *Retrier {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrier{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		Sleep:       sleepContext,
		Logger:      logger,
	}
}

// Backoff returns the wait before retry number n (zero based): base, 2*base, 4*base...
func (r *Retrier) Backoff(n int) time.Duration {
	return r.BaseDelay << uint(n)
}

// Do runs op until it succeeds or the attempts are exhausted. Exhaustion yields a
// service-unavailable error wrapping the last failure. Context cancellation
// stops immediately.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	maxAttempts := r.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var last error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := r.Backoff(attempt - 1)
			logger.Debug("retrying after backoff",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(last),
			)
			if err := sleep(ctx, delay); err != nil {
				return fmt.Errorf("retry backoff: %w", err)
			}
		}
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("retry aborted: %w", ctxErr)
		}
		last = err
	}
	logger.Warn("retries exhausted", zap.Int("attempts", maxAttempts), zap.Error(last))
	return enrichment.ServiceUnavailable("fetch page", last)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
