// Package worker implements the enrichment job handlers and the runner that
// registers them with the broker.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/linkvault/internal/content"
	"github.com/JakeFAU/linkvault/internal/enrichment"
	"github.com/JakeFAU/linkvault/internal/logging"
	"github.com/JakeFAU/linkvault/internal/metrics"
)

// Job outcomes reported to metrics.
const (
	OutcomeSuccess  = "success"
	OutcomeSkipped  = "skipped"
	OutcomeNotFound = "not_found"
	OutcomeFailed   = "failed"
	OutcomePanic    = "panic"
)

// ItemStore is the part of content.Store the workers use.
type ItemStore interface {
	FindByID(ctx context.Context, id string) (content.Item, error)
	FindOneAndUpdate(ctx context.Context, filter content.Filter, patch content.Patch) (content.Item, error)
}

// errSkip marks a job that needed no work.
var errSkip = errors.New("skip")

// guard runs fn and absorbs everything it produces: errors are logged,
// panics are recovered. The returned error is always nil so the broker never
// redelivers a job the pipeline already retried.
func guard(ctx context.Context, logger *zap.Logger, queueName string, job enrichment.Job,
	fn func(context.Context) error,
) (err error) {
	start := time.Now()
	metrics.IncActiveWorkers()
	log := logging.Job(logger, queueName, job.ContentID, job.URL)

	outcome := OutcomeSuccess
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomePanic
			log.Error("job handler panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
		metrics.DecActiveWorkers()
		metrics.ObserveJob(queueName, outcome, time.Since(start))
		err = nil
	}()

	switch runErr := fn(ctx); {
	case runErr == nil:
		log.Debug("job completed", zap.Duration("duration", time.Since(start)))
	case errors.Is(runErr, errSkip):
		outcome = OutcomeSkipped
		log.Debug("job skipped", zap.Error(runErr))
	case errors.Is(runErr, enrichment.ErrNotFound):
		outcome = OutcomeNotFound
		log.Info("content item gone, dropping job")
	default:
		outcome = OutcomeFailed
		log.Error("job failed",
			zap.Int("status", enrichment.StatusOf(runErr)),
			zap.Error(runErr),
		)
	}
	return nil
}

func skipf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errSkip}, args...)...)
}
