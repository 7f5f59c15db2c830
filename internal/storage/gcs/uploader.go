// Package gcs provides an Uploader backed by Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/JakeFAU/linkvault/internal/storage"
)

// DefaultPublicBase is the host objects are served from.
const DefaultPublicBase = "https://storage.googleapis.com"

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
	Prefix string
	// PublicBase overrides the URL prefix of returned links.
	PublicBase string
}

// Uploader writes images to a configured GCS bucket.
type Uploader struct {
	client *gcs.Client
	cfg    Config
	logger *zap.Logger
}

var _ storage.Uploader = (*Uploader)(nil)

// Open creates a client and verifies the bucket is reachable.
// Authentication is handled via Application Default Credentials.
func Open(ctx context.Context, cfg Config, logger *zap.Logger, opts ...option.ClientOption) (*Uploader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("close gcs client after bucket check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("get gcs bucket %q attributes: %w", cfg.Bucket, err)
	}
	return New(client, cfg, logger)
}

// New wraps an existing client.
func New(client *gcs.Client, cfg Config, logger *zap.Logger) (*Uploader, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if cfg.PublicBase == "" {
		cfg.PublicBase = DefaultPublicBase
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{client: client, cfg: cfg, logger: logger.Named("gcs_uploader")}, nil
}

// UploadImage stores data and returns its public URL.
func (u *Uploader) UploadImage(ctx context.Context, data []byte, opts storage.UploadOptions) (storage.UploadResult, error) {
	if err := storage.Validate(data, opts); err != nil {
		return storage.UploadResult{}, err
	}
	key := storage.ObjectKey(u.cfg.Prefix, opts)

	writer := u.client.Bucket(u.cfg.Bucket).Object(key).NewWriter(ctx)
	if opts.ContentType != "" {
		writer.ContentType = opts.ContentType
	}
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return storage.UploadResult{}, fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return storage.UploadResult{}, fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return storage.UploadResult{}, fmt.Errorf("close writer for %s: %w", key, err)
	}

	u.logger.Debug("uploaded object", zap.String("key", key), zap.Int("bytes", len(data)))
	return storage.UploadResult{SecureURL: u.publicURL(key), Key: key}, nil
}

func (u *Uploader) publicURL(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(u.cfg.PublicBase, "/") + "/" + u.cfg.Bucket + "/" + strings.Join(segments, "/")
}

// Close closes the client.
func (u *Uploader) Close() error {
	if err := u.client.Close(); err != nil {
		return fmt.Errorf("close gcs client: %w", err)
	}
	return nil
}
