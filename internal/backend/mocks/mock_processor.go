package mocks

import (
	"context"

	"meetnote/internal/backend"

	"github.com/stretchr/testify/mock"
)

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) ProcessMeeting(ctx context.Context, req backend.ProcessRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
