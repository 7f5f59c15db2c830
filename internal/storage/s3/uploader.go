// Package s3 provides an Uploader for S3-compatible object storage.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkvault/internal/storage"
)

// Config contains S3 storage configuration.
type Config struct {
	Endpoint        string // optional custom endpoint (MinIO, Spaces)
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string // empty uses the default credential chain
	SecretAccessKey string
	UsePathStyle    bool
	// PublicBase overrides the URL prefix of returned links.
	PublicBase string
}

// Uploader writes images to an S3 bucket.
type Uploader struct {
	client *s3.Client
	cfg    Config
	logger *zap.Logger
}

var _ storage.Uploader = (*Uploader)(nil)

// New builds an S3 client from cfg.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 region is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
		// S3-compatible stores reject streaming checksum trailers.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{client: client, cfg: cfg, logger: logger.Named("s3_uploader")}, nil
}

// UploadImage stores data and returns its public URL.
func (u *Uploader) UploadImage(ctx context.Context, data []byte, opts storage.UploadOptions) (storage.UploadResult, error) {
	if err := storage.Validate(data, opts); err != nil {
		return storage.UploadResult{}, err
	}
	key := storage.ObjectKey(u.cfg.Prefix, opts)

	input := &s3.PutObjectInput{
		Bucket: aws.String(u.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if _, err := u.client.PutObject(ctx, input); err != nil {
		return storage.UploadResult{}, fmt.Errorf("put object %s: %w", key, err)
	}

	u.logger.Debug("uploaded object", zap.String("key", key), zap.Int("bytes", len(data)))
	return storage.UploadResult{SecureURL: u.PublicURL(key), Key: key}, nil
}

// PublicURL returns the https URL of key.
func (u *Uploader) PublicURL(key string) string {
	switch {
	case u.cfg.PublicBase != "":
		return strings.TrimRight(u.cfg.PublicBase, "/") + "/" + key
	case u.cfg.Endpoint != "" && u.cfg.UsePathStyle:
		return strings.TrimRight(u.cfg.Endpoint, "/") + "/" + u.cfg.Bucket + "/" + key
	case u.cfg.Endpoint != "":
		return strings.Replace(strings.TrimRight(u.cfg.Endpoint, "/"), "://", "://"+u.cfg.Bucket+".", 1) + "/" + key
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.cfg.Bucket, u.cfg.Region, key)
	}
}
