package driver

import (
	"github.com/stretchr/testify/mock"
)

// MockDriver is a testify mock of the Driver interface.
type MockDriver struct {
	mock.Mock
}

var _ Driver = (*MockDriver)(nil)

func NewMockDriver() *MockDriver {
	return &MockDriver{}
}

func (m *MockDriver) Connect() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDriver) Disconnect() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDriver) SendKey(key Key, pressed bool) error {
	args := m.Called(key, pressed)
	return args.Error(0)
}

func (m *MockDriver) SetHandler(handler Handler) error {
	args := m.Called(handler)
	return args.Error(0)
}
