package cli

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gabapcia/txtracker/internal/action"
	"github.com/gabapcia/txtracker/internal/txstore"
	"github.com/gabapcia/txtracker/internal/txtracker"
)

type ServiceMock struct {
	mock.Mock
}

var _ txtracker.Service = (*ServiceMock)(nil)

func NewServiceMock(t interface {
	mock.TestingT
	Cleanup(func())
}) *ServiceMock {
	m := &ServiceMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *ServiceMock) Start(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *ServiceMock) Submit(ctx context.Context, description string, name action.Name, ec action.Context, args ...string) (string, error) {
	ret := m.Called(ctx, description, name, ec, args)
	return ret.String(0), ret.Error(1)
}

func (m *ServiceMock) Observe() *txtracker.Observer {
	observer, _ := m.Called().Get(0).(*txtracker.Observer)
	return observer
}

func (m *ServiceMock) List() []txtracker.TrayItem {
	items, _ := m.Called().Get(0).([]txtracker.TrayItem)
	return items
}

func (m *ServiceMock) Get(id string) (txstore.Record, bool) {
	ret := m.Called(id)
	record, _ := ret.Get(0).(txstore.Record)
	return record, ret.Bool(1)
}

func (m *ServiceMock) Hydrate(ctx context.Context, snapshot txstore.Snapshot) error {
	return m.Called(ctx, snapshot).Error(0)
}

func (m *ServiceMock) Snapshot() txstore.Snapshot {
	snapshot, _ := m.Called().Get(0).(txstore.Snapshot)
	return snapshot
}

func (m *ServiceMock) Close() {
	m.Called()
}
