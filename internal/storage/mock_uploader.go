package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockUploader is a mock implementation of the Uploader interface for testing.
type MockUploader struct {
	mock.Mock
}

// UploadImage is the mock implementation of the UploadImage method.
func (m *MockUploader) UploadImage(ctx context.Context, data []byte, opts UploadOptions) (UploadResult, error) {
	args := m.Called(ctx, data, opts)
	res, _ := args.Get(0).(UploadResult)
	return res, args.Error(1) //nolint:wrapcheck
}
