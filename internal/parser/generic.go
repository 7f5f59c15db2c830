package parser

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/linkvault/internal/enrichment"
	collyfetcher "github.com/JakeFAU/linkvault/internal/fetcher/colly"
)

// PageFetcher performs plain HTTP page fetches.
type PageFetcher interface {
	Fetch(ctx context.Context, request collyfetcher.Request) (collyfetcher.Response, error)
}

// Generic reads Open Graph and standard meta tags from a plain HTTP GET.
type Generic struct {
	name      string
	fetcher   PageFetcher
	userAgent string
}

// NewGeneric returns the fallback strategy.
func NewGeneric(fetcher PageFetcher) *Generic {
	return &Generic{name: "generic", fetcher: fetcher}
}

// NewLinkedIn returns the generic strategy with a desktop browser User-Agent,
// which LinkedIn requires.
func NewLinkedIn(fetcher PageFetcher) *Generic {
	return &Generic{name: "linkedin", fetcher: fetcher, userAgent: enrichment.DesktopUserAgent}
}

// Name implements Strategy.
func (g *Generic) Name() string {
	return g.name
}

// Parse implements Strategy. Transport failures are service-unavailable; an
// error status yields Empty.
func (g *Generic) Parse(ctx context.Context, rawURL string) (Outcome, error) {
	resp, err := g.fetcher.Fetch(ctx, collyfetcher.Request{URL: rawURL, UserAgent: g.userAgent})
	if err != nil {
		return Empty(), enrichment.ServiceUnavailable(g.name+" parse", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest {
		return Empty(), nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return Empty(), fmt.Errorf("parse html: %w", err)
	}
	base := resp.URL
	if base == "" {
		base = rawURL
	}
	meta := ExtractMeta(doc, base)
	meta.URL = rawURL
	return Found(meta), nil
}

// ExtractMeta reads og:title or <title>, og:description or meta description,
// and og:image resolved against base.
func ExtractMeta(doc *goquery.Document, base string) enrichment.LinkMetadata {
	title := metaContent(doc, `meta[property="og:title"]`)
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	description := metaContent(doc, `meta[property="og:description"]`)
	if description == "" {
		description = metaContent(doc, `meta[name="description"]`)
	}
	return enrichment.LinkMetadata{
		Title:           title,
		Description:     description,
		PreviewImageURL: resolveURL(base, metaContent(doc, `meta[property="og:image"]`)),
	}
}

func metaContent(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
}

func resolveURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
