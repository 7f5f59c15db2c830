// Package redis implements the job broker on Redis lists. A job moves from the
// queue list to a processing list owned by the consuming process while its
// handler runs and is removed once the handler returns. Each consumer keeps a
// heartbeat key alive, so Recover only reclaims lists of consumers that are
// gone.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkvault/internal/enrichment"
	"github.com/JakeFAU/linkvault/internal/queue"
)

const (
	defaultPollTimeout  = time.Second
	defaultHeartbeatTTL = 30 * time.Second
)

// Config holds connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key. Defaults to "linkvault:queue".
	Prefix string
	// ConsumerID names this process's processing lists. Defaults to a random
	// UUID.
	ConsumerID string
	// HeartbeatTTL is how long a consumer's heartbeat outlives its last
	// refresh. Defaults to 30s.
	HeartbeatTTL time.Duration
	// PollTimeout bounds each blocking pop so cancellation is noticed.
	PollTimeout time.Duration
}

// Broker is a queue.Broker backed by Redis.
type Broker struct {
	client       goredis.UniversalClient
	prefix       string
	consumer     string
	heartbeatTTL time.Duration
	pollTimeout  time.Duration
	logger       *zap.Logger
}

var _ queue.Broker = (*Broker)(nil)

// New dials Redis and verifies the connection.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Broker, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return NewWithClient(client, cfg, logger), nil
}

// NewWithClient wraps an existing client. Connection fields in cfg are ignored.
func NewWithClient(client goredis.UniversalClient, cfg Config, logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "linkvault:queue"
	}
	consumer := cfg.ConsumerID
	if consumer == "" {
		consumer = uuid.NewString()
	}
	ttl := cfg.HeartbeatTTL
	if ttl <= 0 {
		ttl = defaultHeartbeatTTL
	}
	poll := cfg.PollTimeout
	if poll <= 0 {
		poll = defaultPollTimeout
	}
	return &Broker{
		client:       client,
		prefix:       prefix,
		consumer:     consumer,
		heartbeatTTL: ttl,
		pollTimeout:  poll,
		logger:       logger.Named("redis_broker").With(zap.String("consumer", consumer)),
	}
}

func (b *Broker) pendingKey(name string) string {
	return b.prefix + ":" + name
}

func (b *Broker) processingPrefix(name string) string {
	return b.prefix + ":" + name + ":processing:"
}

func (b *Broker) processingKey(name string) string {
	return b.processingPrefix(name) + b.consumer
}

func (b *Broker) heartbeatKey(consumer string) string {
	return b.prefix + ":consumers:" + consumer
}

func (b *Broker) beat(ctx context.Context) error {
	if err := b.client.Set(ctx, b.heartbeatKey(b.consumer), time.Now().UTC().Format(time.RFC3339), b.heartbeatTTL).Err(); err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	return nil
}

// keepAlive refreshes the heartbeat until ctx ends, including while a handler
// runs.
func (b *Broker) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(max(b.heartbeatTTL/3, time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.beat(ctx); err != nil && ctx.Err() == nil {
				b.logger.Warn("heartbeat refresh failed", zap.Error(err))
			}
		}
	}
}

// Enqueue pushes the job onto the head of the queue list.
func (b *Broker) Enqueue(ctx context.Context, name string, job enrichment.Job) error {
	data, err := queue.Encode(job)
	if err != nil {
		return err
	}
	if err := b.client.LPush(ctx, b.pendingKey(name), data).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", name, err)
	}
	return nil
}

// Consume pops jobs from the tail of the queue until ctx ends. A handler error
// puts the job back on the queue.
func (b *Broker) Consume(ctx context.Context, name string, handler queue.Handler) error {
	pending, processing := b.pendingKey(name), b.processingKey(name)
	if err := b.beat(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("consume %s: %w", name, err)
	}
	beatCtx, stopBeat := context.WithCancel(ctx)
	defer stopBeat()
	go b.keepAlive(beatCtx)

	for {
		if ctx.Err() != nil {
			return nil
		}
		raw, err := b.client.BLMove(ctx, pending, processing, "RIGHT", "LEFT", b.pollTimeout).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("pop %s: %w", name, err)
		}

		job, err := queue.Decode([]byte(raw))
		if err != nil {
			b.logger.Error("dropping malformed job", zap.String("queue", name), zap.Error(err))
			b.ack(ctx, processing, raw)
			continue
		}

		if err := handler(ctx, job); err != nil {
			b.logger.Warn("job handler failed, requeueing",
				zap.String("queue", name),
				zap.String("content_id", job.ContentID),
				zap.Error(err),
			)
			b.requeue(context.WithoutCancel(ctx), pending, processing, raw)
			continue
		}
		b.ack(context.WithoutCancel(ctx), processing, raw)
	}
}

func (b *Broker) ack(ctx context.Context, processing, raw string) {
	if err := b.client.LRem(ctx, processing, 1, raw).Err(); err != nil {
		b.logger.Warn("ack failed", zap.String("key", processing), zap.Error(err))
	}
}

func (b *Broker) requeue(ctx context.Context, pending, processing, raw string) {
	_, err := b.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.LRem(ctx, processing, 1, raw)
		pipe.LPush(ctx, pending, raw)
		return nil
	})
	if err != nil {
		b.logger.Warn("requeue failed", zap.String("key", pending), zap.Error(err))
	}
}

// Recover moves jobs back to the queue from this consumer's processing list
// and from the lists of consumers whose heartbeat has expired. Lists of live
// consumers are left alone. Call it at startup, before this consumer runs.
func (b *Broker) Recover(ctx context.Context, name string) (int, error) {
	if err := b.beat(ctx); err != nil {
		return 0, fmt.Errorf("recover %s: %w", name, err)
	}
	prefix := b.processingPrefix(name)
	moved := 0
	iter := b.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		owner := strings.TrimPrefix(key, prefix)
		if owner != b.consumer {
			alive, err := b.client.Exists(ctx, b.heartbeatKey(owner)).Result()
			if err != nil {
				return moved, fmt.Errorf("recover %s: %w", name, err)
			}
			if alive > 0 {
				continue
			}
		}
		n, err := b.drain(ctx, key, b.pendingKey(name))
		moved += n
		if err != nil {
			return moved, fmt.Errorf("recover %s: %w", name, err)
		}
		if n > 0 {
			b.logger.Info("recovered jobs", zap.String("queue", name), zap.String("owner", owner), zap.Int("jobs", n))
		}
	}
	if err := iter.Err(); err != nil {
		return moved, fmt.Errorf("recover %s: %w", name, err)
	}
	return moved, nil
}

func (b *Broker) drain(ctx context.Context, from, to string) (int, error) {
	moved := 0
	for {
		err := b.client.LMove(ctx, from, to, "RIGHT", "RIGHT").Err()
		if errors.Is(err, goredis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, err //nolint:wrapcheck
		}
		moved++
	}
}

// Len reports the number of pending jobs.
func (b *Broker) Len(ctx context.Context, name string) (int64, error) {
	n, err := b.client.LLen(ctx, b.pendingKey(name)).Result()
	if err != nil {
		return 0, fmt.Errorf("llen %s: %w", name, err)
	}
	return n, nil
}

// Ping checks the connection.
func (b *Broker) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close closes the client.
func (b *Broker) Close() error {
	if err := b.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}
