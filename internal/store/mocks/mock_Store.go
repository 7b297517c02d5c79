// Package mocks provides test doubles for the purchase store.
package mocks

import (
	"context"

	model "github.com/sells-group/opportunity-agent/internal/model"
	mock "github.com/stretchr/testify/mock"
)

// MockStore is a mock type for the Store interface.
type MockStore struct {
	mock.Mock
}

// CustomerPurchases provides a mock function with given fields: ctx, customerID
func (_m *MockStore) CustomerPurchases(ctx context.Context, customerID string) ([]model.PurchaseRow, error) {
	ret := _m.Called(ctx, customerID)

	if len(ret) == 0 {
		panic("no return value specified for CustomerPurchases")
	}

	var r0 []model.PurchaseRow
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) ([]model.PurchaseRow, error)); ok {
		return rf(ctx, customerID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) []model.PurchaseRow); ok {
		r0 = rf(ctx, customerID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.PurchaseRow)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, customerID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// PeerProducts provides a mock function with given fields: ctx, industry, excludeCustomerID
func (_m *MockStore) PeerProducts(ctx context.Context, industry string, excludeCustomerID string) ([]string, error) {
	ret := _m.Called(ctx, industry, excludeCustomerID)

	if len(ret) == 0 {
		panic("no return value specified for PeerProducts")
	}

	var r0 []string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) ([]string, error)); ok {
		return rf(ctx, industry, excludeCustomerID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, string) []string); ok {
		r0 = rf(ctx, industry, excludeCustomerID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]string)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, string) error); ok {
		r1 = rf(ctx, industry, excludeCustomerID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// PurchasePairs provides a mock function with given fields: ctx
func (_m *MockStore) PurchasePairs(ctx context.Context) ([]model.CustomerProduct, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for PurchasePairs")
	}

	var r0 []model.CustomerProduct
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) ([]model.CustomerProduct, error)); ok {
		return rf(ctx)
	}
	if rf, ok := ret.Get(0).(func(context.Context) []model.CustomerProduct); ok {
		r0 = rf(ctx)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.CustomerProduct)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// InsertPurchases provides a mock function with given fields: ctx, rows
func (_m *MockStore) InsertPurchases(ctx context.Context, rows []model.PurchaseRow) (int64, error) {
	ret := _m.Called(ctx, rows)

	if len(ret) == 0 {
		panic("no return value specified for InsertPurchases")
	}

	var r0 int64
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, []model.PurchaseRow) (int64, error)); ok {
		return rf(ctx, rows)
	}
	if rf, ok := ret.Get(0).(func(context.Context, []model.PurchaseRow) int64); ok {
		r0 = rf(ctx, rows)
	} else {
		r0 = ret.Get(0).(int64)
	}

	if rf, ok := ret.Get(1).(func(context.Context, []model.PurchaseRow) error); ok {
		r1 = rf(ctx, rows)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Truncate provides a mock function with given fields: ctx
func (_m *MockStore) Truncate(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Truncate")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Ping provides a mock function with given fields: ctx
func (_m *MockStore) Ping(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Ping")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Migrate provides a mock function with given fields: ctx
func (_m *MockStore) Migrate(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Migrate")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Close provides a mock function with no fields
func (_m *MockStore) Close() error {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Close")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func() error); ok {
		r0 = rf()
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockStore creates a new instance of MockStore.
func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStore {
	mock := &MockStore{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
