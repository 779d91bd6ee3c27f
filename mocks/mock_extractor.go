package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"unikrew/internal/pipeline"
)

// MockExtractor is a mock implementation of service.Extractor.
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Run(ctx context.Context, img pipeline.Image) (*pipeline.Extraction, error) {
	args := m.Called(ctx, img)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pipeline.Extraction), args.Error(1)
}
