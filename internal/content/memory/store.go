// Package memory provides an in-process content store for local development
// and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JakeFAU/linkvault/internal/content"
	"github.com/JakeFAU/linkvault/internal/enrichment"
)

// Store keeps items in a map guarded by a RWMutex.
type Store struct {
	mu    sync.RWMutex
	items map[string]content.Item
	now   func() time.Time
}

var _ content.Store = (*Store)(nil)

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		items: make(map[string]content.Item),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts item. IDs must be unique.
func (s *Store) Create(_ context.Context, item content.Item) (content.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" {
		return content.Item{}, fmt.Errorf("item id is required")
	}
	if _, exists := s.items[item.ID]; exists {
		return content.Item{}, fmt.Errorf("item %s already exists", item.ID)
	}
	item.Tags = content.NormalizeTags(item.Tags)
	s.items[item.ID] = clone(item)
	return clone(item), nil
}

// FindByID returns the item with id.
func (s *Store) FindByID(_ context.Context, id string) (content.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return content.Item{}, enrichment.ErrNotFound
	}
	return clone(item), nil
}

// FindOneAndUpdate applies patch to the matching item.
func (s *Store) FindOneAndUpdate(_ context.Context, filter content.Filter, patch content.Patch) (content.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[filter.ID]
	if !ok || !filter.Matches(item) {
		return content.Item{}, enrichment.ErrNotFound
	}
	patch.Apply(&item, s.now())
	s.items[item.ID] = item
	return clone(item), nil
}

// Delete removes the matching item.
func (s *Store) Delete(_ context.Context, filter content.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[filter.ID]
	if !ok || !filter.Matches(item) {
		return enrichment.ErrNotFound
	}
	delete(s.items, filter.ID)
	return nil
}

// Search does a case-insensitive substring match over title, description,
// content, url and tags.
func (s *Store) Search(_ context.Context, userID, query string, limit int) ([]content.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]content.Item, 0)
	for _, item := range s.items {
		if item.UserID != userID {
			continue
		}
		if query != "" && !matches(item, query) {
			continue
		}
		out = append(out, clone(item))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len reports how many items are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func matches(item content.Item, query string) bool {
	fields := append([]string{item.Title, item.Description, item.Content, item.URL}, item.Tags...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

func clone(item content.Item) content.Item {
	item.Tags = append([]string{}, item.Tags...)
	return item
}
