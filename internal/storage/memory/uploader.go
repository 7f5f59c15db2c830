// Package memory stores uploaded images in-memory for development.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/linkvault/internal/storage"
)

// Object is a stored upload.
type Object struct {
	Data        []byte
	ContentType string
}

// Uploader stores objects in a map and returns memory:// URLs.
type Uploader struct {
	prefix string

	mu      sync.RWMutex
	objects map[string]Object
}

var _ storage.Uploader = (*Uploader)(nil)

// NewUploader creates an empty in-memory uploader.
func NewUploader(prefix string) *Uploader {
	return &Uploader{prefix: prefix, objects: make(map[string]Object)}
}

// UploadImage copies data into the store.
func (u *Uploader) UploadImage(_ context.Context, data []byte, opts storage.UploadOptions) (storage.UploadResult, error) {
	if err := storage.Validate(data, opts); err != nil {
		return storage.UploadResult{}, err
	}
	key := storage.ObjectKey(u.prefix, opts)

	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = Object{Data: append([]byte(nil), data...), ContentType: opts.ContentType}
	return storage.UploadResult{SecureURL: "memory://" + key, Key: key}, nil
}

// Get returns a stored object.
func (u *Uploader) Get(key string) (Object, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	obj, ok := u.objects[key]
	return obj, ok
}

// Len reports how many objects are stored.
func (u *Uploader) Len() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.objects)
}
