// Package storage defines the object store that holds preview images.
// Backends live in the gcs, s3 and memory subpackages.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

// UploadOptions names the object being written.
type UploadOptions struct {
	Folder      string
	ID          string
	ContentType string
}

// UploadResult describes a stored object.
type UploadResult struct {
	// SecureURL is the public https URL of the object.
	SecureURL string
	Key       string
}

// Uploader stores image bytes and returns a public URL for them.
type Uploader interface {
	UploadImage(ctx context.Context, data []byte, opts UploadOptions) (UploadResult, error)
}

// ErrEmptyObject is returned when there is nothing to upload.
var ErrEmptyObject = errors.New("empty object")

// Validate checks that opts and data describe an uploadable object.
func Validate(data []byte, opts UploadOptions) error {
	if len(data) == 0 {
		return ErrEmptyObject
	}
	if strings.TrimSpace(opts.ID) == "" {
		return errors.New("object id is required")
	}
	return nil
}

// ObjectKey builds "<prefix>/<folder>/<id><ext>", skipping empty segments.
func ObjectKey(prefix string, opts UploadOptions) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{prefix, opts.Folder} {
		if p = strings.Trim(p, "/"); p != "" {
			parts = append(parts, p)
		}
	}
	parts = append(parts, opts.ID+Extension(opts.ContentType))
	return path.Join(parts...)
}

// Extension maps an image content type to a file extension. Unknown types
// get ".bin".
func Extension(contentType string) string {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	case "image/avif":
		return ".avif"
	default:
		return ".bin"
	}
}
