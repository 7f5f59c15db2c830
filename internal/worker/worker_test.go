package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/linkvault/internal/content"
	contentmem "github.com/JakeFAU/linkvault/internal/content/memory"
	"github.com/JakeFAU/linkvault/internal/enrichment"
	"github.com/JakeFAU/linkvault/internal/pipeline"
	queuemem "github.com/JakeFAU/linkvault/internal/queue/memory"
	"github.com/JakeFAU/linkvault/internal/screenshot"
	"github.com/JakeFAU/linkvault/internal/storage"
	storagemem "github.com/JakeFAU/linkvault/internal/storage/memory"
)

type fakeCapturer struct {
	mu     sync.Mutex
	calls  int
	img    screenshot.Image
	err    error
	before func()
	panics bool
}

func (f *fakeCapturer) Capture(context.Context, string) (screenshot.Image, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.before != nil {
		f.before()
	}
	if f.panics {
		panic("renderer exploded")
	}
	return f.img, f.err
}

func (f *fakeCapturer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeGenerator struct {
	result pipeline.Result
	err    error
	calls  int
	during func()
}

func (f *fakeGenerator) Generate(context.Context, string) (pipeline.Result, error) {
	f.calls++
	if f.during != nil {
		f.during()
	}
	return f.result, f.err
}

type failingUploader struct{}

func (failingUploader) UploadImage(context.Context, []byte, storage.UploadOptions) (storage.UploadResult, error) {
	return storage.UploadResult{}, errors.New("bucket gone")
}

func seedLink(t *testing.T, store *contentmem.Store, item content.Item) {
	t.Helper()
	if item.Type == "" {
		item.Type = content.TypeLink
	}
	_, err := store.Create(context.Background(), item)
	require.NoError(t, err)
}

var pngImage = screenshot.Image{Data: []byte("\x89PNG"), ContentType: "image/png"}

func TestScreenshotWorkerStoresPreview(t *testing.T) {
	t.Parallel()

	store := contentmem.NewStore()
	seedLink(t, store, content.Item{ID: "c1", UserID: "u1", URL: "https://example.org"})
	uploader := storagemem.NewUploader("")
	w := NewScreenshotWorker(store, &fakeCapturer{img: pngImage}, uploader, "", nil)

	job := enrichment.Job{ContentID: "c1", URL: "https://example.org", UserID: "u1"}
	require.NoError(t, w.Handle(context.Background(), job))

	item, err := store.FindByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "memory://previews/u1/c1.png", item.PreviewImageURL)
	obj, ok := uploader.Get("previews/u1/c1.png")
	require.True(t, ok)
	assert.Equal(t, pngImage.Data, obj.Data)
}

func TestScreenshotWorkerSkipsExistingPreview(t *testing.T) {
	t.Parallel()

	store := contentmem.NewStore()
	seedLink(t, store, content.Item{ID: "c1", UserID: "u1", PreviewImageURL: "https://cdn/old.png"})
	capturer := &fakeCapturer{img: pngImage}
	w := NewScreenshotWorker(store, capturer, storagemem.NewUploader(""), "", nil)

	require.NoError(t, w.Handle(context.Background(), enrichment.Job{ContentID: "c1", URL: "https://x.io", UserID: "u1"}))
	assert.Zero(t, capturer.count())

	item, err := store.FindByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/old.png", item.PreviewImageURL)
}

func TestScreenshotWorkerToleratesDeletedItem(t *testing.T) {
	t.Parallel()

	store := contentmem.NewStore()
	capturer := &fakeCapturer{img: pngImage}
	w := NewScreenshotWorker(store, capturer, storagemem.NewUploader(""), "", nil)
	require.NoError(t, w.Handle(context.Background(), enrichment.Job{ContentID: "missing", URL: "https://x.io"}))
	assert.Zero(t, capturer.count())
}

func TestScreenshotWorkerItemDeletedMidFlight(t *testing.T) {
	t.Parallel()

	store := contentmem.NewStore()
	seedLink(t, store, content.Item{ID: "c1", UserID: "u1"})
	capturer := &fakeCapturer{img: pngImage, before: func() {
		_ = store.Delete(context.Background(), content.Filter{ID: "c1", UserID: "u1"})
	}}
	w := NewScreenshotWorker(store, capturer, storagemem.NewUploader(""), "", nil)

	require.NoError(t, w.Handle(context.Background(), enrichment.Job{ContentID: "c1", URL: "https://x.io", UserID: "u1"}))
	assert.Zero(t, store.Len())
}

func TestScreenshotWorkerSwallowsFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		capturer *fakeCapturer
		uploader storage.Uploader
	}{
		{"capture error", &fakeCapturer{err: enrichment.ServiceUnavailable("fetch page", errors.New("timeout"))}, storagemem.NewUploader("")},
		{"capture panic", &fakeCapturer{panics: true}, storagemem.NewUploader("")},
		{"upload error", &fakeCapturer{img: pngImage}, failingUploader{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			store := contentmem.NewStore()
			seedLink(t, store, content.Item{ID: "c1", UserID: "u1"})
			w := NewScreenshotWorker(store, tc.capturer, tc.uploader, "", nil)

			require.NotPanics(t, func() {
				require.NoError(t, w.Handle(context.Background(), enrichment.Job{ContentID: "c1", URL: "https://x.io", UserID: "u1"}))
			})
			item, err := store.FindByID(context.Background(), "c1")
			require.NoError(t, err)
			assert.Empty(t, item.PreviewImageURL)
		})
	}
}

func TestTagWorkerPatchesTagsAndPlatform(t *testing.T) {
	t.Parallel()

	store := contentmem.NewStore()
	seedLink(t, store, content.Item{ID: "c1", UserID: "u1", URL: "https://github.com/owner/repo", Tags: []string{"mine"}})
	gen := &fakeGenerator{result: pipeline.Result{Tags: []string{"go", "mine", "cli"}, Source: pipeline.SourceDescription}}
	w := NewTagWorker(store, gen, nil)

	require.NoError(t, w.Handle(context.Background(), enrichment.Job{ContentID: "c1", URL: "https://github.com/owner/repo", UserID: "u1"}))

	item, err := store.FindByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"mine", "go", "cli"}, item.Tags)
	assert.Equal(t, enrichment.PlatformGitHub, item.Platform)
}

func TestTagWorkerKeepsTagsEditedDuringGeneration(t *testing.T) {
	t.Parallel()

	store := contentmem.NewStore()
	seedLink(t, store, content.Item{ID: "c1", UserID: "u1", URL: "https://example.org/a", Tags: []string{"mine"}})
	gen := &fakeGenerator{
		result: pipeline.Result{Tags: []string{"golang"}, Source: pipeline.SourceMetaKeywords},
		during: func() {
			_, err := store.FindOneAndUpdate(context.Background(),
				content.Filter{ID: "c1", UserID: "u1"},
				content.Patch{Tags: []string{"mine", "edited"}},
			)
			require.NoError(t, err)
		},
	}
	w := NewTagWorker(store, gen, nil)

	require.NoError(t, w.Handle(context.Background(), enrichment.Job{ContentID: "c1", URL: "https://example.org/a", UserID: "u1"}))

	item, err := store.FindByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"mine", "edited", "golang"}, item.Tags)
}

func TestTagWorkerGenerationFailureStillRecordsPlatform(t *testing.T) {
	t.Parallel()

	store := contentmem.NewStore()
	seedLink(t, store, content.Item{ID: "c1", UserID: "u1", Tags: []string{"keep"}})
	gen := &fakeGenerator{err: enrichment.Internal("generate tags", errors.New("boom"))}
	w := NewTagWorker(store, gen, nil)

	require.NoError(t, w.Handle(context.Background(), enrichment.Job{ContentID: "c1", URL: "https://example.org/a", UserID: "u1"}))

	item, err := store.FindByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, item.Tags)
	assert.Equal(t, enrichment.Platform("example.org"), item.Platform)
}

func TestTagWorkerToleratesDeletedItem(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	w := NewTagWorker(contentmem.NewStore(), gen, nil)
	require.NoError(t, w.Handle(context.Background(), enrichment.Job{ContentID: "gone", URL: "https://x.io"}))
	assert.Zero(t, gen.calls)
}

type recoveringBroker struct {
	*queuemem.Broker
	mu        sync.Mutex
	recovered []string
}

func (b *recoveringBroker) Recover(_ context.Context, name string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recovered = append(b.recovered, name)
	return 0, nil
}

func TestRunnerProcessesBothQueues(t *testing.T) {
	t.Parallel()

	store := contentmem.NewStore()
	seedLink(t, store, content.Item{ID: "c1", UserID: "u1", URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"})
	broker := &recoveringBroker{Broker: queuemem.New(4, nil)}
	runner := NewRunner(broker,
		NewScreenshotWorker(store, &fakeCapturer{img: pngImage}, storagemem.NewUploader(""), "", nil),
		NewTagWorker(store, &fakeGenerator{result: pipeline.Result{Tags: []string{"music"}}}, nil),
		nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	job := enrichment.Job{ContentID: "c1", URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", UserID: "u1"}
	require.NoError(t, broker.Enqueue(ctx, enrichment.QueueScreenshot, job))
	require.NoError(t, broker.Enqueue(ctx, enrichment.QueueTags, job))

	require.Eventually(t, func() bool {
		item, err := store.FindByID(context.Background(), "c1")
		return err == nil && item.PreviewImageURL != "" && len(item.Tags) == 1
	}, 2*time.Second, 10*time.Millisecond)

	item, err := store.FindByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, enrichment.PlatformYouTube, item.Platform)

	cancel()
	require.NoError(t, <-done)
	broker.mu.Lock()
	assert.ElementsMatch(t, []string{enrichment.QueueScreenshot, enrichment.QueueTags}, broker.recovered)
	broker.mu.Unlock()
}

func TestRunnerRequiresWorkers(t *testing.T) {
	t.Parallel()

	err := NewRunner(queuemem.New(1, nil), nil, nil, nil).Run(context.Background())
	require.Error(t, err)
}
