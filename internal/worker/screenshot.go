package worker

import (
	"context"
	"fmt"
	"path"

	"go.uber.org/zap"

	"github.com/JakeFAU/linkvault/internal/content"
	"github.com/JakeFAU/linkvault/internal/enrichment"
	"github.com/JakeFAU/linkvault/internal/screenshot"
	"github.com/JakeFAU/linkvault/internal/storage"
)

// DefaultPreviewFolder is the top-level folder for preview images.
const DefaultPreviewFolder = "previews"

// Capturer renders a preview image for a URL.
type Capturer interface {
	Capture(ctx context.Context, rawURL string) (screenshot.Image, error)
}

// ScreenshotWorker renders, uploads and records preview images.
type ScreenshotWorker struct {
	store    ItemStore
	capturer Capturer
	uploader storage.Uploader
	folder   string
	logger   *zap.Logger
}

// NewScreenshotWorker builds a ScreenshotWorker. An empty folder uses
// DefaultPreviewFolder.
func NewScreenshotWorker(store ItemStore, capturer Capturer, uploader storage.Uploader, folder string, logger *zap.Logger) *ScreenshotWorker {
	if folder == "" {
		folder = DefaultPreviewFolder
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScreenshotWorker{
		store:    store,
		capturer: capturer,
		uploader: uploader,
		folder:   folder,
		logger:   logger.Named("screenshot_worker"),
	}
}

// Handle processes one screenshot job. It never returns an error.
func (w *ScreenshotWorker) Handle(ctx context.Context, job enrichment.Job) error {
	return guard(ctx, w.logger, enrichment.QueueScreenshot, job, func(ctx context.Context) error {
		return w.process(ctx, job)
	})
}

func (w *ScreenshotWorker) process(ctx context.Context, job enrichment.Job) error {
	item, err := w.store.FindByID(ctx, job.ContentID)
	if err != nil {
		return fmt.Errorf("load content: %w", err)
	}
	if item.PreviewImageURL != "" {
		return skipf("preview already set")
	}

	img, err := w.capturer.Capture(ctx, job.URL)
	if err != nil {
		return fmt.Errorf("capture preview: %w", err)
	}

	res, err := w.uploader.UploadImage(ctx, img.Data, storage.UploadOptions{
		Folder:      path.Join(w.folder, job.UserID),
		ID:          job.ContentID,
		ContentType: img.ContentType,
	})
	if err != nil {
		return fmt.Errorf("upload preview: %w", err)
	}

	_, err = w.store.FindOneAndUpdate(ctx,
		content.Filter{ID: job.ContentID, UserID: job.UserID},
		content.Patch{PreviewImageURL: &res.SecureURL},
	)
	if err != nil {
		return fmt.Errorf("save preview url: %w", err)
	}
	w.logger.Info("preview stored",
		zap.String("content_id", job.ContentID),
		zap.String("preview_url", res.SecureURL),
	)
	return nil
}
