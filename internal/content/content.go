// Package content holds the saved-item model, its store contract and the
// service that creates items and schedules their enrichment.
package content

import (
	"context"
	"time"

	"github.com/JakeFAU/linkvault/internal/enrichment"
	"github.com/JakeFAU/linkvault/internal/tags"
)

// Type distinguishes what an item carries.
type Type string

// Item types.
const (
	TypeText Type = "text"
	TypeLink Type = "link"
	TypeCode Type = "code"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	switch t {
	case TypeText, TypeLink, TypeCode:
		return true
	}
	return false
}

// Item is a saved piece of content. Link items carry URL and no Content;
// text and code items carry Content and no URL. Platform is set only for
// links, after enrichment.
type Item struct {
	ID              string              `json:"id"`
	UserID          string              `json:"userId"`
	Type            Type                `json:"type"`
	Title           string              `json:"title,omitempty"`
	Description     string              `json:"description,omitempty"`
	Content         string              `json:"content,omitempty"`
	URL             string              `json:"url,omitempty"`
	Tags            []string            `json:"tags"`
	PreviewImageURL string              `json:"previewImageUrl,omitempty"`
	Platform        enrichment.Platform `json:"platform,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// Filter selects a single item owned by UserID. An empty UserID matches
// nothing.
type Filter struct {
	ID     string
	UserID string
}

// Matches reports whether item satisfies f.
func (f Filter) Matches(item Item) bool {
	return f.UserID != "" && item.ID == f.ID && item.UserID == f.UserID
}

// Patch lists the fields to overwrite. Nil fields are left untouched.
// AddTags is merged into the stored tags by the store itself, after Tags is
// applied, so concurrent edits to the item are not lost.
type Patch struct {
	Title           *string
	Description     *string
	Tags            []string
	AddTags         []string
	PreviewImageURL *string
	Platform        *enrichment.Platform
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Tags == nil && p.AddTags == nil &&
		p.PreviewImageURL == nil && p.Platform == nil
}

// Apply writes the patch onto item.
func (p Patch) Apply(item *Item, now time.Time) {
	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Tags != nil {
		item.Tags = NormalizeTags(p.Tags)
	}
	if p.AddTags != nil {
		item.Tags = NormalizeTags(append(append([]string{}, item.Tags...), p.AddTags...))
	}
	if p.PreviewImageURL != nil {
		item.PreviewImageURL = *p.PreviewImageURL
	}
	if p.Platform != nil {
		item.Platform = *p.Platform
	}
	item.UpdatedAt = now
}

// Store persists items. Missing items are reported with enrichment.ErrNotFound.
type Store interface {
	Create(ctx context.Context, item Item) (Item, error)
	FindByID(ctx context.Context, id string) (Item, error)
	// FindOneAndUpdate applies patch to the item matching filter and returns
	// the updated item.
	FindOneAndUpdate(ctx context.Context, filter Filter, patch Patch) (Item, error)
	Delete(ctx context.Context, filter Filter) error
	// Search returns a user's items matching query, newest first. An empty
	// query lists everything.
	Search(ctx context.Context, userID, query string, limit int) ([]Item, error)
}

// NormalizeTags lowercases, trims and deduplicates tags, dropping empties.
// The result is never nil.
func NormalizeTags(in []string) []string {
	return tags.Normalize(in)
}
