package queue

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/JakeFAU/linkvault/internal/enrichment"
)

// MockBroker is a mock implementation of the Broker interface for testing.
type MockBroker struct {
	mock.Mock
}

// Enqueue is the mock implementation of the Enqueue method.
func (m *MockBroker) Enqueue(ctx context.Context, queue string, job enrichment.Job) error {
	args := m.Called(ctx, queue, job)
	return args.Error(0)
}

// Consume is the mock implementation of the Consume method.
func (m *MockBroker) Consume(ctx context.Context, queue string, handler Handler) error {
	args := m.Called(ctx, queue, handler)
	return args.Error(0)
}

// Close is the mock implementation of the Close method.
func (m *MockBroker) Close() error {
	args := m.Called()
	return args.Error(0)
}
