// Package queue defines the job broker that decouples link enrichment from the
// save path. Implementations live in the memory, pubsub and redis subpackages.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JakeFAU/linkvault/internal/enrichment"
)

// Handler processes one job. A returned error asks the broker to redeliver
// where the backend supports it.
type Handler func(ctx context.Context, job enrichment.Job) error

// Broker is a named-queue job broker with at-least-once delivery.
type Broker interface {
	// Enqueue publishes job to the named queue.
	Enqueue(ctx context.Context, queue string, job enrichment.Job) error
	// Consume delivers jobs from the named queue to handler until ctx ends.
	Consume(ctx context.Context, queue string, handler Handler) error
	// Close releases client connections.
	Close() error
}

// Encode serializes a job for the wire.
func Encode(job enrichment.Job) ([]byte, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	return data, nil
}

// Decode parses a job from the wire.
func Decode(data []byte) (enrichment.Job, error) {
	var job enrichment.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return enrichment.Job{}, fmt.Errorf("unmarshal job: %w", err)
	}
	return job, nil
}

// NoOpBroker drops every job. It is used when enrichment is disabled.
type NoOpBroker struct{}

// Enqueue for NoOpBroker does nothing and returns nil.
func (NoOpBroker) Enqueue(context.Context, string, enrichment.Job) error { return nil }

// Consume for NoOpBroker blocks until ctx ends.
func (NoOpBroker) Consume(ctx context.Context, _ string, _ Handler) error {
	<-ctx.Done()
	return nil
}

// Close for NoOpBroker does nothing and returns nil.
func (NoOpBroker) Close() error { return nil }
