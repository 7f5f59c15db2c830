package parser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/JakeFAU/linkvault/internal/enrichment"
)

var videoIDPattern = regexp.MustCompile(
	`(?:youtube\.com/(?:watch\?(?:[^#]*&)?v=|shorts/|embed/|live/|v/)|youtu\.be/)([A-Za-z0-9_-]{11})`,
)

// VideoID extracts the 11 character video ID from watch, shorts, embed, live
// and youtu.be URLs.
func VideoID(rawURL string) (string, bool) {
	m := videoIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// YouTubeConfig configures the YouTube Data API client.
type YouTubeConfig struct {
	APIKey string
	// Endpoint overrides the API base URL.
	Endpoint   string
	HTTPClient *http.Client
}

// YouTube reads video metadata from the YouTube Data API v3.
type YouTube struct {
	apiKey  string
	service *youtube.Service
}

// NewYouTube builds the strategy. A missing API key is not an error here; Parse
// reports it so the failure surfaces per link.
func NewYouTube(ctx context.Context, cfg YouTubeConfig) (*YouTube, error) {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &YouTube{apiKey: cfg.APIKey, service: svc}, nil
}

// Name implements Strategy.
func (y *YouTube) Name() string {
	return "youtube"
}

// Parse implements Strategy. A missing key or video ID fails before any
// request is made; a video the API does not return is NotFound.
func (y *YouTube) Parse(ctx context.Context, rawURL string) (Outcome, error) {
	if y.apiKey == "" {
		return Empty(), enrichment.BadRequest("youtube parse", "api key not configured")
	}
	id, ok := VideoID(rawURL)
	if !ok {
		return Empty(), enrichment.BadRequest("youtube parse", "no video id in url")
	}

	resp, err := y.service.Videos.List([]string{"snippet"}).
		Id(id).
		Context(ctx).
		Do(googleapi.QueryParameter("key", y.apiKey))
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return Empty(), enrichment.NotFound("youtube parse", "video "+id+" not found")
		}
		return Empty(), enrichment.ServiceUnavailable("youtube parse", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return Empty(), enrichment.NotFound("youtube parse", "video "+id+" not found")
	}

	snippet := resp.Items[0].Snippet
	return Found(enrichment.LinkMetadata{
		Platform:        enrichment.PlatformYouTube,
		Title:           snippet.Title,
		URL:             rawURL,
		PreviewImageURL: bestThumbnail(snippet.Thumbnails),
	}), nil
}

func bestThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, thumb := range []*youtube.Thumbnail{t.Maxres, t.High, t.Medium, t.Default} {
		if thumb != nil && thumb.Url != "" {
			return thumb.Url
		}
	}
	return ""
}
