package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/JakeFAU/linkvault/internal/browser"
	"github.com/JakeFAU/linkvault/internal/enrichment"
)

// PageOpener hands out tabs on the shared browser.
type PageOpener interface {
	NewPage(ctx context.Context) (browser.Page, error)
}

// Navigator loads a URL into a page, retrying failed navigations.
type Navigator interface {
	Navigate(ctx context.Context, page browser.Page, url string) error
}

const cardScript = `(() => {
  const meta = (sel) => {
    const el = document.querySelector(sel);
    return el ? (el.getAttribute("content") || "") : "";
  };
  return {
    title: meta('meta[property="og:title"]') || meta('meta[name="twitter:title"]') || document.title || "",
    description: meta('meta[property="og:description"]') || meta('meta[name="twitter:description"]'),
    image: meta('meta[property="og:image"]') || meta('meta[name="twitter:image"]')
  };
})()`

type card struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// Twitter renders the post in the shared browser and reads its card metadata.
type Twitter struct {
	pages     PageOpener
	navigator Navigator
}

// NewTwitter returns the Twitter/X strategy.
func NewTwitter(pages PageOpener, navigator Navigator) *Twitter {
	return &Twitter{pages: pages, navigator: navigator}
}

// Name implements Strategy.
func (t *Twitter) Name() string {
	return "twitter"
}

// Parse implements Strategy. A page with no title at all is NotFound, which
// usually means the post is behind a login wall.
func (t *Twitter) Parse(ctx context.Context, rawURL string) (Outcome, error) {
	page, err := t.pages.NewPage(ctx)
	if err != nil {
		return Empty(), enrichment.ServiceUnavailable("twitter parse", err)
	}
	defer page.Close()

	if err := page.SetUserAgent(ctx, enrichment.DesktopUserAgent); err != nil {
		return Empty(), fmt.Errorf("twitter parse: %w", err)
	}
	if err := t.navigator.Navigate(ctx, page, rawURL); err != nil {
		return Empty(), err
	}
	var c card
	if err := page.Evaluate(ctx, cardScript, &c); err != nil {
		return Empty(), fmt.Errorf("twitter parse: %w", err)
	}
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return Empty(), enrichment.NotFound("twitter parse", "no title found")
	}
	return Found(enrichment.LinkMetadata{
		Platform:        enrichment.PlatformTwitter,
		Title:           title,
		Description:     strings.TrimSpace(c.Description),
		URL:             rawURL,
		PreviewImageURL: strings.TrimSpace(c.Image),
	}), nil
}
