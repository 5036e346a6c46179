package mocks

import (
	"context"

	"meetnote/internal/notify"

	"github.com/stretchr/testify/mock"
)

type MockTokenSource struct {
	mock.Mock
}

func (m *MockTokenSource) PushToken(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type MockLocalNotifier struct {
	mock.Mock
}

func (m *MockLocalNotifier) NotifyLocal(ctx context.Context, title, body string, data map[string]string) {
	m.Called(ctx, title, body, data)
}

type MockPrompter struct {
	mock.Mock
}

func (m *MockPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	args := m.Called(ctx, question)
	return args.Bool(0), args.Error(1)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) IssueToken(ctx context.Context, req notify.TokenRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type MockDesktop struct {
	mock.Mock
}

func (m *MockDesktop) Show(ctx context.Context, title, body string) error {
	args := m.Called(ctx, title, body)
	return args.Error(0)
}
