package testutils

import (
	"github.com/stretchr/testify/mock"
)

type MockAlertSender struct {
	mock.Mock
}

func (m *MockAlertSender) SendSecurityAlert(subject, body string) error {
	args := m.Called(subject, body)
	return args.Error(0)
}
