package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockBucket struct {
	mock.Mock
}

func (m *MockBucket) Upload(ctx context.Context, objectPath, contentType string, data []byte) error {
	args := m.Called(ctx, objectPath, contentType, data)
	return args.Error(0)
}

func (m *MockBucket) URL(ctx context.Context, objectPath string) (string, error) {
	args := m.Called(ctx, objectPath)
	return args.String(0), args.Error(1)
}

func (m *MockBucket) Delete(ctx context.Context, objectPath string) error {
	args := m.Called(ctx, objectPath)
	return args.Error(0)
}

func (m *MockBucket) CallsForMethod(method string) []mock.Call {
	var calls []mock.Call
	for _, call := range m.Calls {
		if call.Method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

func (m *MockBucket) Reset() {
	m.Mock = mock.Mock{}
}
