// Package mocks provides test doubles for the generative service.
package mocks

import (
	"context"

	genai "github.com/sells-group/opportunity-agent/internal/genai"
	mock "github.com/stretchr/testify/mock"
)

// MockGenerator is a mock type for the Generator interface.
type MockGenerator struct {
	mock.Mock
}

// Structured provides a mock function with given fields: ctx, req, out
func (_m *MockGenerator) Structured(ctx context.Context, req genai.StructuredRequest, out any) error {
	ret := _m.Called(ctx, req, out)

	if len(ret) == 0 {
		panic("no return value specified for Structured")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, genai.StructuredRequest, any) error); ok {
		r0 = rf(ctx, req, out)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Text provides a mock function with given fields: ctx, req
func (_m *MockGenerator) Text(ctx context.Context, req genai.TextRequest) (string, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Text")
	}

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, genai.TextRequest) (string, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, genai.TextRequest) string); ok {
		r0 = rf(ctx, req)
	} else {
		r0 = ret.Get(0).(string)
	}

	if rf, ok := ret.Get(1).(func(context.Context, genai.TextRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockGenerator creates a new instance of MockGenerator.
func NewMockGenerator(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockGenerator {
	mock := &MockGenerator{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
