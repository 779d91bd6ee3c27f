package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"unikrew/internal/port"
)

// MockObjectStorage is a mock implementation of port.ObjectStorage.
type MockObjectStorage struct {
	mock.Mock
}

// NewMockObjectStorage returns a storage mock whose expectations are
// asserted when the test ends.
func NewMockObjectStorage(t *testing.T) *MockObjectStorage {
	m := &MockObjectStorage{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockObjectStorage) Upload(ctx context.Context, input port.ObjectInput) (*port.ObjectInfo, error) {
	args := m.Called(ctx, input)
	info, _ := args.Get(0).(*port.ObjectInfo)
	return info, args.Error(1)
}

func (m *MockObjectStorage) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	args := m.Called(ctx, bucket, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockObjectStorage) Delete(ctx context.Context, bucket, key string) error {
	return m.Called(ctx, bucket, key).Error(0)
}

func (m *MockObjectStorage) GetPresignedURL(ctx context.Context, bucket, key string, expirySeconds int64) (string, error) {
	args := m.Called(ctx, bucket, key, expirySeconds)
	return args.String(0), args.Error(1)
}
