package adapters

import (
	"context"

	"github.com/stretchr/testify/mock"

	"botmux/models"
)

// MockAdapter is a testify mock of the Adapter interface
type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) Platform() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockAdapter) IsReady() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockAdapter) Bind(events Events) {
	m.Called(events)
}

func (m *MockAdapter) Start(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAdapter) Stop() {
	m.Called()
}

func (m *MockAdapter) PushCommands(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAdapter) CreateOrUpdateStatus(text string) {
	m.Called(text)
}

func (m *MockAdapter) SendOneTimeStatus(text string, notify bool) {
	m.Called(text, notify)
}

func (m *MockAdapter) ReplaceStatus(text string) {
	m.Called(text)
}

func (m *MockAdapter) SendLog(text string) {
	m.Called(text)
}

func (m *MockAdapter) SendToAccount(account models.Account, text string) error {
	args := m.Called(account, text)
	return args.Error(0)
}
