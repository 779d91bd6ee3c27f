package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"unikrew/internal/port"
)

// MockTokenClassifier is a mock implementation of port.TokenClassifier.
type MockTokenClassifier struct {
	mock.Mock
}

func (m *MockTokenClassifier) Classify(ctx context.Context, input port.ClassifyInput) (*port.ClassifyOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.ClassifyOutput), args.Error(1)
}
