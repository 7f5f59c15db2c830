// Package pipeline generates tags for a link, preferring cheap metadata and
// falling back to rendering the page in the shared browser.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/linkvault/internal/browser"
	"github.com/JakeFAU/linkvault/internal/enrichment"
	"github.com/JakeFAU/linkvault/internal/metrics"
	"github.com/JakeFAU/linkvault/internal/tags"
)

// MetadataParser produces link metadata, normally the parser chain.
type MetadataParser interface {
	Parse(ctx context.Context, rawURL string) (enrichment.LinkMetadata, error)
}

// PageOpener hands out tabs on the shared browser.
type PageOpener interface {
	NewPage(ctx context.Context) (browser.Page, error)
}

// HTMLFetcher renders url in page with retries.
type HTMLFetcher interface {
	FetchHTML(ctx context.Context, page browser.Page, url string) (string, error)
}

// Result is a generated tag set and where its text came from.
type Result struct {
	Tags   []string
	Source Source
}

// Generator runs the tag generation steps.
type Generator struct {
	parser  MetadataParser
	pages   PageOpener
	fetcher HTMLFetcher
	maxTags int
	logger  *zap.Logger
}

// NewGenerator builds a Generator. maxTags <= 0 uses the extractor default.
func NewGenerator(parser MetadataParser, pages PageOpener, fetcher HTMLFetcher, maxTags int, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		parser:  parser,
		pages:   pages,
		fetcher: fetcher,
		maxTags: maxTags,
		logger:  logger.Named("pipeline"),
	}
}

// Generate returns tags for rawURL. A page with no usable text yields an empty
// tag list, not an error. Service-unavailable errors are returned as is; other
// failures while rendering are reported as one internal error.
func (g *Generator) Generate(ctx context.Context, rawURL string) (Result, error) {
	logger := g.logger.With(zap.String("url", rawURL))

	meta, err := g.parser.Parse(ctx, rawURL)
	switch {
	case err != nil:
		logger.Info("metadata parse failed, rendering page", zap.Error(err))
	case strings.TrimSpace(meta.Description) != "":
		return g.result(meta.Description, SourceDescription), nil
	}

	text, source, err := g.render(ctx, rawURL)
	if err != nil {
		if enrichment.IsServiceUnavailable(err) {
			return Result{}, err
		}
		return Result{}, enrichment.Internal("generate tags", err)
	}
	if source == SourceNone {
		metrics.ObserveTagSource(string(SourceNone))
		return Result{Tags: []string{}, Source: SourceNone}, nil
	}
	return g.result(text, source), nil
}

func (g *Generator) render(ctx context.Context, rawURL string) (text string, source Source, err error) {
	page, err := g.pages.NewPage(ctx)
	if err != nil {
		return "", SourceNone, fmt.Errorf("open page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			g.logger.Debug("close page", zap.Error(cerr))
		}
	}()

	if err := page.SetUserAgent(ctx, enrichment.DesktopUserAgent); err != nil {
		return "", SourceNone, fmt.Errorf("set user agent: %w", err)
	}
	html, err := g.fetcher.FetchHTML(ctx, page, rawURL)
	if err != nil {
		var typed *enrichment.Error
		if errors.As(err, &typed) {
			return "", SourceNone, err
		}
		return "", SourceNone, fmt.Errorf("fetch html: %w", err)
	}
	text, source = extractText(html, rawURL)
	return text, source, nil
}

func (g *Generator) result(text string, source Source) Result {
	metrics.ObserveTagSource(string(source))
	return Result{Tags: tags.Extract(text, g.maxTags), Source: source}
}
