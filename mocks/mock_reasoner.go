package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"unikrew/internal/port"
)

// MockReasoner is a mock implementation of port.Reasoner.
type MockReasoner struct {
	mock.Mock
}

func (m *MockReasoner) Reason(ctx context.Context, input port.ReasonInput) (*port.ReasonOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.ReasonOutput), args.Error(1)
}
