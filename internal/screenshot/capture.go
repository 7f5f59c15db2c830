// Package screenshot produces preview images for links.
package screenshot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/linkvault/internal/browser"
	"github.com/JakeFAU/linkvault/internal/enrichment"
	"github.com/JakeFAU/linkvault/internal/platform"
)

// DefaultMaxImageBytes caps downloaded preview images.
const DefaultMaxImageBytes int64 = 10 * 1024 * 1024

const ogImageScript = `(() => {
  const el = document.querySelector('meta[property="og:image"]');
  return el ? (el.getAttribute("content") || "") : "";
})()`

// Image is an encoded preview image.
type Image struct {
	Data        []byte
	ContentType string
}

// PageOpener hands out tabs on the shared browser.
type PageOpener interface {
	NewPage(ctx context.Context) (browser.Page, error)
}

// Navigator loads a URL into a page, retrying failed navigations.
type Navigator interface {
	Navigate(ctx context.Context, page browser.Page, url string) error
}

// Capturer renders preview images. Instagram posts use their og:image since the
// page itself is mostly login chrome; everything else gets a full-page PNG.
type Capturer struct {
	pages     PageOpener
	navigator Navigator
	client    *http.Client
	maxBytes  int64
	logger    *zap.Logger
}

// NewCapturer builds a Capturer. A nil client uses http.DefaultClient.
func NewCapturer(pages PageOpener, navigator Navigator, client *http.Client, logger *zap.Logger) *Capturer {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Capturer{
		pages:     pages,
		navigator: navigator,
		client:    client,
		maxBytes:  DefaultMaxImageBytes,
		logger:    logger.Named("screenshot"),
	}
}

// Capture returns a preview image for rawURL.
func (c *Capturer) Capture(ctx context.Context, rawURL string) (Image, error) {
	page, err := c.pages.NewPage(ctx)
	if err != nil {
		return Image{}, fmt.Errorf("open page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			c.logger.Debug("close page", zap.Error(cerr))
		}
	}()

	if err := page.SetUserAgent(ctx, enrichment.DesktopUserAgent); err != nil {
		return Image{}, fmt.Errorf("set user agent: %w", err)
	}
	if err := c.navigator.Navigate(ctx, page, rawURL); err != nil {
		return Image{}, err
	}

	if platform.Classify(rawURL) == enrichment.PlatformInstagram {
		return c.ogImage(ctx, page)
	}

	data, err := page.Screenshot(ctx)
	if err != nil {
		return Image{}, fmt.Errorf("capture screenshot: %w", err)
	}
	return Image{Data: data, ContentType: "image/png"}, nil
}

func (c *Capturer) ogImage(ctx context.Context, page browser.Page) (Image, error) {
	var imageURL string
	if err := page.Evaluate(ctx, ogImageScript, &imageURL); err != nil {
		return Image{}, fmt.Errorf("read og:image: %w", err)
	}
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return Image{}, enrichment.NotFound("capture screenshot", "no og:image on page")
	}
	return c.download(ctx, imageURL)
}

func (c *Capturer) download(ctx context.Context, imageURL string) (Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return Image{}, fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("User-Agent", enrichment.DesktopUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return Image{}, enrichment.ServiceUnavailable("download image", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Image{}, fmt.Errorf("download image: unexpected status %d", resp.StatusCode)
	}
	if resp.ContentLength > c.maxBytes {
		return Image{}, fmt.Errorf("image too large: %d bytes (max: %d)", resp.ContentLength, c.maxBytes)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return Image{}, fmt.Errorf("image too large: exceeds %d bytes", c.maxBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	if !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(data)
	}
	return Image{Data: data, ContentType: contentType}, nil
}
