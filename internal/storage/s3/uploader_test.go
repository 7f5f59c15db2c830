package s3

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/linkvault/internal/storage"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Region: "us-east-1"}, nil)
	require.Error(t, err)
	_, err = New(context.Background(), Config{Bucket: "b"}, nil)
	require.Error(t, err)
}

func TestUploadImagePathStyle(t *testing.T) {
	t.Parallel()

	var (
		mu        sync.Mutex
		gotPath   string
		gotBody   []byte
		gotType   string
		gotMethod string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotMethod, gotPath, gotBody, gotType = r.Method, r.URL.Path, body, r.Header.Get("Content-Type")
		mu.Unlock()
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u, err := New(context.Background(), Config{
		Endpoint:        srv.URL,
		Region:          "us-east-1",
		Bucket:          "previews",
		Prefix:          "lv",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		UsePathStyle:    true,
	}, nil)
	require.NoError(t, err)

	res, err := u.UploadImage(context.Background(), []byte("jpegdata"), storage.UploadOptions{
		Folder:      "images",
		ID:          "c1",
		ContentType: "image/jpeg",
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/previews/lv/images/c1.jpg", gotPath)
	assert.Equal(t, "jpegdata", string(gotBody))
	assert.Equal(t, "image/jpeg", gotType)
	assert.Equal(t, srv.URL+"/previews/lv/images/c1.jpg", res.SecureURL)
}

func TestUploadImageServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	u, err := New(context.Background(), Config{
		Endpoint: srv.URL, Region: "us-east-1", Bucket: "b",
		AccessKeyID: "k", SecretAccessKey: "s", UsePathStyle: true,
	}, nil)
	require.NoError(t, err)

	_, err = u.UploadImage(context.Background(), []byte("x"), storage.UploadOptions{ID: "a", ContentType: "image/png"})
	require.Error(t, err)
}

func TestPublicURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"aws", Config{Bucket: "b", Region: "eu-west-1"}, "https://b.s3.eu-west-1.amazonaws.com/k.png"},
		{"path style", Config{Bucket: "b", Endpoint: "http://minio:9000/", UsePathStyle: true}, "http://minio:9000/b/k.png"},
		{"virtual host", Config{Bucket: "b", Endpoint: "https://sfo3.digitaloceanspaces.com"}, "https://b.sfo3.digitaloceanspaces.com/k.png"},
		{"public base", Config{Bucket: "b", PublicBase: "https://cdn.example.com/"}, "https://cdn.example.com/k.png"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			u := &Uploader{cfg: tc.cfg}
			assert.Equal(t, tc.want, u.PublicURL("k.png"))
		})
	}
}
