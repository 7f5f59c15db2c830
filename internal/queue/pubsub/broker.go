// Package pubsub implements the job broker on Google Cloud Pub/Sub. Each queue
// is a topic with one subscription named "<queue>-sub".
package pubsub

import (
	"context"
	"fmt"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JakeFAU/linkvault/internal/enrichment"
	"github.com/JakeFAU/linkvault/internal/queue"
)

// Broker publishes and receives jobs through Pub/Sub.
type Broker struct {
	client    *pubsub.Client
	projectID string
	logger    *zap.Logger

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

var _ queue.Broker = (*Broker)(nil)

// New creates a Pub/Sub client for projectID. Authentication uses Application
// Default Credentials unless opts say otherwise.
func New(ctx context.Context, projectID string, logger *zap.Logger, opts ...option.ClientOption) (*Broker, error) {
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return NewWithClient(client, projectID, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *pubsub.Client, projectID string, logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		client:     client,
		projectID:  projectID,
		logger:     logger.Named("pubsub_broker"),
		publishers: make(map[string]*pubsub.Publisher),
	}
}

// TopicName returns the fully qualified topic for a queue.
func (b *Broker) TopicName(queueName string) string {
	return fmt.Sprintf("projects/%s/topics/%s", b.projectID, queueName)
}

// SubscriptionName returns the fully qualified subscription for a queue.
func (b *Broker) SubscriptionName(queueName string) string {
	return fmt.Sprintf("projects/%s/subscriptions/%s-sub", b.projectID, queueName)
}

// EnsureQueue creates the topic and subscription for queueName when missing.
func (b *Broker) EnsureQueue(ctx context.Context, queueName string) error {
	topic := b.TopicName(queueName)
	if _, err := b.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: topic}); err != nil {
		if status.Code(err) != codes.NotFound {
			return fmt.Errorf("get topic %s: %w", topic, err)
		}
		if _, err := b.client.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: topic}); err != nil {
			return fmt.Errorf("create topic %s: %w", topic, err)
		}
		b.logger.Info("created topic", zap.String("topic", topic))
	}

	sub := b.SubscriptionName(queueName)
	getSub := &pubsubpb.GetSubscriptionRequest{Subscription: sub}
	if _, err := b.client.SubscriptionAdminClient.GetSubscription(ctx, getSub); err != nil {
		if status.Code(err) != codes.NotFound {
			return fmt.Errorf("get subscription %s: %w", sub, err)
		}
		_, err := b.client.SubscriptionAdminClient.CreateSubscription(ctx, &pubsubpb.Subscription{
			Name:               sub,
			Topic:              topic,
			AckDeadlineSeconds: 60,
		})
		if err != nil {
			return fmt.Errorf("create subscription %s: %w", sub, err)
		}
		b.logger.Info("created subscription", zap.String("subscription", sub))
	}
	return nil
}

func (b *Broker) publisher(queueName string) *pubsub.Publisher {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.publishers[queueName]
	if !ok {
		p = b.client.Publisher(b.TopicName(queueName))
		b.publishers[queueName] = p
	}
	return p
}

// Enqueue publishes the job and waits for the server to accept it. The caller's
// trace context travels in the message attributes.
func (b *Broker) Enqueue(ctx context.Context, queueName string, job enrichment.Job) error {
	data, err := queue.Encode(job)
	if err != nil {
		return err
	}
	msg := &pubsub.Message{Data: data, Attributes: make(map[string]string)}
	otel.GetTextMapPropagator().Inject(ctx, &carrier{attrs: msg.Attributes})

	result := b.publisher(queueName).Publish(ctx, msg)
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish to %s: %w", queueName, err)
	}
	return nil
}

// Consume receives from the queue's subscription until ctx ends. Handler errors
// nack the message for redelivery; undecodable messages are acked and dropped.
func (b *Broker) Consume(ctx context.Context, queueName string, handler queue.Handler) error {
	sub := b.client.Subscriber(b.SubscriptionName(queueName))
	err := sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		ctx = otel.GetTextMapPropagator().Extract(ctx, &carrier{attrs: msg.Attributes})
		job, err := queue.Decode(msg.Data)
		if err != nil {
			b.logger.Error("dropping malformed job", zap.String("queue", queueName), zap.Error(err))
			msg.Ack()
			return
		}
		if err := handler(ctx, job); err != nil {
			b.logger.Warn("job handler failed, nacking",
				zap.String("queue", queueName),
				zap.String("content_id", job.ContentID),
				zap.Error(err),
			)
			msg.Nack()
			return
		}
		msg.Ack()
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("receive from %s: %w", queueName, err)
	}
	return nil
}

// Close stops publishers and closes the client.
func (b *Broker) Close() error {
	b.mu.Lock()
	for _, p := range b.publishers {
		p.Stop()
	}
	b.publishers = map[string]*pubsub.Publisher{}
	b.mu.Unlock()
	if err := b.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}

// carrier implements propagation.TextMapCarrier for Pub/Sub attributes.
type carrier struct {
	attrs map[string]string
}

func (c *carrier) Get(key string) string {
	return c.attrs[key]
}

func (c *carrier) Set(key, value string) {
	c.attrs[key] = value
}

func (c *carrier) Keys() []string {
	keys := make([]string, 0, len(c.attrs))
	for k := range c.attrs {
		keys = append(keys, k)
	}
	return keys
}
