package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/linkvault/internal/content"
	"github.com/JakeFAU/linkvault/internal/enrichment"
)

func seed(t *testing.T, s *Store, items ...content.Item) {
	t.Helper()
	for _, item := range items {
		_, err := s.Create(context.Background(), item)
		require.NoError(t, err)
	}
}

func TestStoreCreateAndFind(t *testing.T) {
	t.Parallel()

	s := NewStore()
	created, err := s.Create(context.Background(), content.Item{
		ID: "1", UserID: "u", Type: content.TypeLink, URL: "https://go.dev", Tags: []string{" Go ", "go"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, created.Tags)

	got, err := s.FindByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = s.Create(context.Background(), content.Item{ID: "1"})
	require.Error(t, err)
	_, err = s.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, enrichment.ErrNotFound)
}

func TestStoreFindOneAndUpdate(t *testing.T) {
	t.Parallel()

	s := NewStore()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	seed(t, s, content.Item{ID: "1", UserID: "u", Type: content.TypeLink})

	preview := "https://cdn/x.png"
	platform := enrichment.PlatformGitHub
	got, err := s.FindOneAndUpdate(context.Background(), content.Filter{ID: "1", UserID: "u"}, content.Patch{
		PreviewImageURL: &preview,
		Platform:        &platform,
		Tags:            []string{"Go", "go", "cli"},
	})
	require.NoError(t, err)
	assert.Equal(t, preview, got.PreviewImageURL)
	assert.Equal(t, enrichment.PlatformGitHub, got.Platform)
	assert.Equal(t, []string{"go", "cli"}, got.Tags)
	assert.Equal(t, fixed, got.UpdatedAt)

	_, err = s.FindOneAndUpdate(context.Background(), content.Filter{ID: "1", UserID: "other"}, content.Patch{})
	require.ErrorIs(t, err, enrichment.ErrNotFound)
	_, err = s.FindOneAndUpdate(context.Background(), content.Filter{ID: "gone", UserID: "u"}, content.Patch{})
	require.ErrorIs(t, err, enrichment.ErrNotFound)
	_, err = s.FindOneAndUpdate(context.Background(), content.Filter{ID: "1"}, content.Patch{})
	require.ErrorIs(t, err, enrichment.ErrNotFound)
}

func TestStoreFindOneAndUpdateMergesAddTags(t *testing.T) {
	t.Parallel()

	s := NewStore()
	seed(t, s, content.Item{ID: "1", UserID: "u", Type: content.TypeLink, Tags: []string{"mine", "go"}})

	got, err := s.FindOneAndUpdate(context.Background(), content.Filter{ID: "1", UserID: "u"}, content.Patch{
		AddTags: []string{"Go", "kubernetes"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"mine", "go", "kubernetes"}, got.Tags)

	got, err = s.FindOneAndUpdate(context.Background(), content.Filter{ID: "1", UserID: "u"}, content.Patch{
		Tags:    []string{"fresh"},
		AddTags: []string{"kubernetes"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh", "kubernetes"}, got.Tags)
}

func TestStoreDelete(t *testing.T) {
	t.Parallel()

	s := NewStore()
	seed(t, s, content.Item{ID: "1", UserID: "u"})
	require.ErrorIs(t, s.Delete(context.Background(), content.Filter{ID: "1", UserID: "x"}), enrichment.ErrNotFound)
	require.ErrorIs(t, s.Delete(context.Background(), content.Filter{ID: "1"}), enrichment.ErrNotFound)
	require.NoError(t, s.Delete(context.Background(), content.Filter{ID: "1", UserID: "u"}))
	assert.Zero(t, s.Len())
}

func TestStoreSearch(t *testing.T) {
	t.Parallel()

	s := NewStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seed(t, s,
		content.Item{ID: "1", UserID: "u", Title: "Go concurrency", CreatedAt: base},
		content.Item{ID: "2", UserID: "u", Tags: []string{"golang"}, CreatedAt: base.Add(time.Hour)},
		content.Item{ID: "3", UserID: "u", Title: "Rust", CreatedAt: base.Add(2 * time.Hour)},
		content.Item{ID: "4", UserID: "v", Title: "Go for v", CreatedAt: base},
	)

	got, err := s.Search(context.Background(), "u", "GO", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "1", got[1].ID)

	all, err := s.Search(context.Background(), "u", "", 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "3", all[0].ID)
}
