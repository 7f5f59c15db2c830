package content

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/linkvault/internal/enrichment"
	"github.com/JakeFAU/linkvault/internal/metrics"
	"github.com/JakeFAU/linkvault/internal/queue"
)

const (
	defaultEnqueueTimeout = 10 * time.Second
	defaultSearchLimit    = 50
	maxSearchLimit        = 200
)

// IDGenerator issues item IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Clock supplies timestamps.
type Clock interface {
	Now() time.Time
}

// NewItem is the input to Service.Create.
type NewItem struct {
	UserID      string   `json:"userId"`
	Type        Type     `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	URL         string   `json:"url"`
	Tags        []string `json:"tags"`
}

// Service creates items and hands link items to the enrichment queues.
type Service struct {
	store          Store
	broker         queue.Broker
	ids            IDGenerator
	clock          Clock
	logger         *zap.Logger
	enqueueTimeout time.Duration

	wg sync.WaitGroup
}

// NewService wires a Service.
func NewService(store Store, broker queue.Broker, ids IDGenerator, clock Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:          store,
		broker:         broker,
		ids:            ids,
		clock:          clock,
		logger:         logger.Named("content_service"),
		enqueueTimeout: defaultEnqueueTimeout,
	}
}

// Create validates and stores a new item. Link items get one job per
// enrichment queue; enqueueing runs in the background and its failures are
// only logged.
func (s *Service) Create(ctx context.Context, in NewItem) (Item, error) {
	item, err := buildItem(in)
	if err != nil {
		return Item{}, err
	}
	id, err := s.ids.NewID()
	if err != nil {
		return Item{}, enrichment.Internal("create content", err)
	}
	now := s.clock.Now()
	item.ID = id
	item.CreatedAt = now
	item.UpdatedAt = now

	created, err := s.store.Create(ctx, item)
	if err != nil {
		return Item{}, fmt.Errorf("create content: %w", err)
	}
	if created.Type == TypeLink {
		s.dispatch(ctx, enrichment.Job{ContentID: created.ID, URL: created.URL, UserID: created.UserID})
	}
	return created, nil
}

func (s *Service) dispatch(ctx context.Context, job enrichment.Job) {
	ctx = context.WithoutCancel(ctx)
	for _, name := range []string{enrichment.QueueScreenshot, enrichment.QueueTags} {
		s.wg.Add(1)
		go func(name string) {
			defer s.wg.Done()
			enqueueCtx, cancel := context.WithTimeout(ctx, s.enqueueTimeout)
			defer cancel()
			if err := s.broker.Enqueue(enqueueCtx, name, job); err != nil {
				metrics.ObserveEnqueueFailure(name)
				s.logger.Error("enqueue enrichment job",
					zap.String("queue", name),
					zap.String("content_id", job.ContentID),
					zap.Error(err),
				)
			}
		}(name)
	}
}

// Wait blocks until background enqueues finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Get returns the item matching filter.
func (s *Service) Get(ctx context.Context, filter Filter) (Item, error) {
	if strings.TrimSpace(filter.UserID) == "" {
		return Item{}, enrichment.BadRequest("find content", "userId is required")
	}
	item, err := s.store.FindByID(ctx, filter.ID)
	if err != nil {
		return Item{}, fmt.Errorf("find content %s: %w", filter.ID, err)
	}
	if !filter.Matches(item) {
		return Item{}, fmt.Errorf("find content %s: %w", filter.ID, enrichment.ErrNotFound)
	}
	return item, nil
}

// Delete removes the item matching filter.
func (s *Service) Delete(ctx context.Context, filter Filter) error {
	if strings.TrimSpace(filter.UserID) == "" {
		return enrichment.BadRequest("delete content", "userId is required")
	}
	if err := s.store.Delete(ctx, filter); err != nil {
		return fmt.Errorf("delete content %s: %w", filter.ID, err)
	}
	return nil
}

// Search lists a user's items matching query.
func (s *Service) Search(ctx context.Context, userID, query string, limit int) ([]Item, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, enrichment.BadRequest("search content", "userId is required")
	}
	switch {
	case limit <= 0:
		limit = defaultSearchLimit
	case limit > maxSearchLimit:
		limit = maxSearchLimit
	}
	items, err := s.store.Search(ctx, userID, strings.TrimSpace(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search content: %w", err)
	}
	return items, nil
}

func buildItem(in NewItem) (Item, error) {
	const op = "create content"
	if strings.TrimSpace(in.UserID) == "" {
		return Item{}, enrichment.BadRequest(op, "userId is required")
	}
	if !in.Type.Valid() {
		return Item{}, enrichment.BadRequest(op, fmt.Sprintf("unknown type %q", in.Type))
	}
	item := Item{
		UserID:      strings.TrimSpace(in.UserID),
		Type:        in.Type,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Tags:        NormalizeTags(in.Tags),
	}
	if in.Type == TypeLink {
		link, err := validateLink(in.URL)
		if err != nil {
			return Item{}, enrichment.BadRequest(op, err.Error())
		}
		item.URL = link
		return item, nil
	}
	if strings.TrimSpace(in.Content) == "" {
		return Item{}, enrichment.BadRequest(op, "content is required")
	}
	item.Content = in.Content
	return item, nil
}

func validateLink(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("url is required")
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("url host is required")
	}
	return u.String(), nil
}
