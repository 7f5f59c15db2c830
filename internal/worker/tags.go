package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/linkvault/internal/content"
	"github.com/JakeFAU/linkvault/internal/enrichment"
	"github.com/JakeFAU/linkvault/internal/pipeline"
	"github.com/JakeFAU/linkvault/internal/platform"
)

// TagGenerator produces tags for a URL.
type TagGenerator interface {
	Generate(ctx context.Context, rawURL string) (pipeline.Result, error)
}

// TagWorker generates tags and records the link's platform.
type TagWorker struct {
	store     ItemStore
	generator TagGenerator
	logger    *zap.Logger
}

// NewTagWorker builds a TagWorker.
func NewTagWorker(store ItemStore, generator TagGenerator, logger *zap.Logger) *TagWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TagWorker{
		store:     store,
		generator: generator,
		logger:    logger.Named("tag_worker"),
	}
}

// Handle processes one tag job. It never returns an error.
func (w *TagWorker) Handle(ctx context.Context, job enrichment.Job) error {
	return guard(ctx, w.logger, enrichment.QueueTags, job, func(ctx context.Context) error {
		return w.process(ctx, job)
	})
}

// process patches the platform even when tag generation fails. Generated
// tags are merged into the stored ones by the store.
func (w *TagWorker) process(ctx context.Context, job enrichment.Job) error {
	if _, err := w.store.FindByID(ctx, job.ContentID); err != nil {
		return fmt.Errorf("load content: %w", err)
	}

	plat := platform.Classify(job.URL)
	patch := content.Patch{Platform: &plat}

	result, genErr := w.generator.Generate(ctx, job.URL)
	if genErr == nil {
		patch.AddTags = content.NormalizeTags(result.Tags)
	}

	item, err := w.store.FindOneAndUpdate(ctx, content.Filter{ID: job.ContentID, UserID: job.UserID}, patch)
	if err != nil {
		return fmt.Errorf("save tags: %w", err)
	}
	if genErr != nil {
		return fmt.Errorf("generate tags: %w", genErr)
	}

	w.logger.Info("tags stored",
		zap.String("content_id", job.ContentID),
		zap.String("platform", plat.String()),
		zap.String("source", string(result.Source)),
		zap.Strings("tags", item.Tags),
	)
	return nil
}
