package mocks

import (
	"context"

	"meetnote/internal/model"
	"meetnote/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockMeetingService struct {
	mock.Mock
}

func (m *MockMeetingService) UploadAndProcess(ctx context.Context, localPath string) (*service.UploadResult, error) {
	args := m.Called(ctx, localPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
}

func (m *MockMeetingService) UploadRecording(ctx context.Context, audio []byte) (*service.UploadResult, error) {
	args := m.Called(ctx, audio)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
}

func (m *MockMeetingService) List(ctx context.Context) ([]model.Meeting, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Meeting), args.Error(1)
}

func (m *MockMeetingService) Get(ctx context.Context, id string) (*model.Meeting, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Meeting), args.Error(1)
}

func (m *MockMeetingService) Retrigger(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
