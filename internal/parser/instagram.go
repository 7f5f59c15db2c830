package parser

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkvault/internal/enrichment"
	collyfetcher "github.com/JakeFAU/linkvault/internal/fetcher/colly"
)

// DefaultInstagramBase is where embed pages are fetched from.
const DefaultInstagramBase = "https://www.instagram.com"

var shortcodePattern = regexp.MustCompile(`/(p|reel)/([A-Za-z0-9_-]+)`)

// Instagram scrapes the public embed page of a post or reel. Instagram markup
// changes often, so every failure degrades to empty metadata instead of an error.
type Instagram struct {
	fetcher PageFetcher
	baseURL string
	logger  *zap.Logger
}

// NewInstagram returns the Instagram strategy. An empty baseURL uses instagram.com.
func NewInstagram(fetcher PageFetcher, baseURL string, logger *zap.Logger) *Instagram {
	if baseURL == "" {
		baseURL = DefaultInstagramBase
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Instagram{fetcher: fetcher, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

// Name implements Strategy.
func (s *Instagram) Name() string {
	return "instagram"
}

// Parse implements Strategy and never returns an error.
func (s *Instagram) Parse(ctx context.Context, rawURL string) (Outcome, error) {
	meta := enrichment.LinkMetadata{Platform: enrichment.PlatformInstagram, URL: rawURL}

	kind, code, ok := Shortcode(rawURL)
	if !ok {
		return Found(meta), nil
	}
	embedURL := fmt.Sprintf("%s/%s/%s/embed/", s.baseURL, kind, code)
	resp, err := s.fetcher.Fetch(ctx, collyfetcher.Request{URL: embedURL, UserAgent: enrichment.DesktopUserAgent})
	if err != nil {
		s.logger.Debug("instagram embed fetch failed", zap.String("url", embedURL), zap.Error(err))
		return Found(meta), nil
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Debug("instagram embed status", zap.String("url", embedURL), zap.Int("status", resp.StatusCode))
		return Found(meta), nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return Found(meta), nil
	}
	meta.Title = strings.TrimSpace(doc.Find(".UsernameText").First().Text())
	meta.PreviewImageURL = strings.TrimSpace(doc.Find(".EmbeddedMediaImage").First().AttrOr("src", ""))
	return Found(meta), nil
}

// Shortcode extracts the post kind ("p" or "reel") and shortcode from an
// Instagram URL.
func Shortcode(rawURL string) (string, string, bool) {
	m := shortcodePattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
