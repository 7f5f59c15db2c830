package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/linkvault/internal/enrichment"
	"github.com/JakeFAU/linkvault/internal/queue"
)

// recoverer is implemented by brokers that can requeue jobs a crashed
// consumer left in flight.
type recoverer interface {
	Recover(ctx context.Context, queueName string) (int, error)
}

// Runner registers the enrichment handlers on their queues.
type Runner struct {
	broker     queue.Broker
	screenshot *ScreenshotWorker
	tags       *TagWorker
	logger     *zap.Logger
}

// NewRunner builds a Runner. A nil worker leaves its queue unconsumed.
func NewRunner(broker queue.Broker, screenshot *ScreenshotWorker, tags *TagWorker, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{broker: broker, screenshot: screenshot, tags: tags, logger: logger.Named("runner")}
}

// Run consumes both queues until ctx ends or a consumer fails.
func (r *Runner) Run(ctx context.Context) error {
	handlers := map[string]queue.Handler{}
	if r.screenshot != nil {
		handlers[enrichment.QueueScreenshot] = r.screenshot.Handle
	}
	if r.tags != nil {
		handlers[enrichment.QueueTags] = r.tags.Handle
	}
	if len(handlers) == 0 {
		return fmt.Errorf("no workers configured")
	}

	if rec, ok := r.broker.(recoverer); ok {
		for name := range handlers {
			n, err := rec.Recover(ctx, name)
			if err != nil {
				return fmt.Errorf("recover in-flight jobs: %w", err)
			}
			if n > 0 {
				r.logger.Info("requeued in-flight jobs", zap.String("queue", name), zap.Int("count", n))
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, handler := range handlers {
		g.Go(func() error {
			r.logger.Info("consuming", zap.String("queue", name))
			if err := r.broker.Consume(gctx, name, handler); err != nil {
				return fmt.Errorf("consume %s: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err //nolint:wrapcheck
	}
	r.logger.Info("consumers stopped")
	return nil
}
