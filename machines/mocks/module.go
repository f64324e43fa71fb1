package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/robbyt/go-evmod/execution/data"
	"github.com/robbyt/go-evmod/machines/types"
)

// Module is a mock implementation of types.Module for testing purposes.
type Module struct {
	mock.Mock
}

// Name is a mock implementation of the Name method.
func (m *Module) Name() string {
	return m.Called().String(0)
}

// Machine is a mock implementation of the Machine method.
func (m *Module) Machine() types.Type {
	return m.Called().Get(0).(types.Type)
}

// Variables is a mock implementation of the Variables method.
func (m *Module) Variables() []string {
	args := m.Called()
	names, _ := args.Get(0).([]string)
	return names
}

// Resolve is a mock implementation of the Resolve method.
func (m *Module) Resolve(ctx context.Context, variable string, ev data.Event) (any, error) {
	args := m.Called(ctx, variable, ev)
	return args.Get(0), args.Error(1)
}

// Close is a mock implementation of the Close method.
func (m *Module) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
