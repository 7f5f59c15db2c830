// Package memory provides an in-process broker for local development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/linkvault/internal/enrichment"
	"github.com/JakeFAU/linkvault/internal/queue"
)

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("broker closed")

// Broker keeps one bounded channel per queue name. Jobs are lost on restart.
type Broker struct {
	capacity int
	logger   *zap.Logger

	mu     sync.Mutex
	queues map[string]chan enrichment.Job
	done   chan struct{}
	once   sync.Once
}

var _ queue.Broker = (*Broker)(nil)

// New returns a Broker whose queues hold up to capacity pending jobs each.
func New(capacity int, logger *zap.Logger) *Broker {
	if capacity <= 0 {
		capacity = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		capacity: capacity,
		logger:   logger.Named("memory_broker"),
		queues:   make(map[string]chan enrichment.Job),
		done:     make(chan struct{}),
	}
}

func (b *Broker) channel(name string) chan enrichment.Job {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.queues[name]
	if !ok {
		ch = make(chan enrichment.Job, b.capacity)
		b.queues[name] = ch
	}
	return ch
}

// Enqueue pushes a job, waiting for space or until the context ends.
func (b *Broker) Enqueue(ctx context.Context, name string, job enrichment.Job) error {
	ch := b.channel(name)
	select {
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case ch <- job:
		return nil
	}
}

// Consume delivers jobs until ctx ends or the broker is closed. Handler errors
// are logged; the job is not redelivered.
func (b *Broker) Consume(ctx context.Context, name string, handler queue.Handler) error {
	ch := b.channel(name)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.done:
			return nil
		case job := <-ch:
			if err := handler(ctx, job); err != nil {
				b.logger.Warn("job handler failed",
					zap.String("queue", name),
					zap.String("content_id", job.ContentID),
					zap.Error(err),
				)
			}
		}
	}
}

// Len reports pending jobs on the named queue.
func (b *Broker) Len(name string) int {
	return len(b.channel(name))
}

// Close stops consumers and rejects further enqueues.
func (b *Broker) Close() error {
	b.once.Do(func() { close(b.done) })
	return nil
}
