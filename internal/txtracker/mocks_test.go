package txtracker

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gabapcia/txtracker/internal/action"
	"github.com/gabapcia/txtracker/internal/txstore"
)

type SessionProviderMock struct {
	mock.Mock
}

func NewSessionProviderMock(t interface {
	mock.TestingT
	Cleanup(func())
}) *SessionProviderMock {
	m := &SessionProviderMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *SessionProviderMock) Session(ctx context.Context, cfg action.ExecutorConfig) (action.Session, error) {
	args := m.Called(ctx, cfg)
	session, _ := args.Get(0).(action.Session)
	return session, args.Error(1)
}

type SessionMock struct {
	mock.Mock
}

func NewSessionMock(t interface {
	mock.TestingT
	Cleanup(func())
}) *SessionMock {
	m := &SessionMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *SessionMock) Account() string {
	return m.Called().String(0)
}

func (m *SessionMock) SendTransaction(ctx context.Context, call action.Call) (string, error) {
	args := m.Called(ctx, call)
	return args.String(0), args.Error(1)
}

func (m *SessionMock) WaitForReceipt(ctx context.Context, hash string) (action.Receipt, error) {
	args := m.Called(ctx, hash)
	receipt, _ := args.Get(0).(action.Receipt)
	return receipt, args.Error(1)
}

type RecordStorageMock struct {
	mock.Mock
}

func NewRecordStorageMock(t interface {
	mock.TestingT
	Cleanup(func())
}) *RecordStorageMock {
	m := &RecordStorageMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *RecordStorageMock) SaveRecord(ctx context.Context, record txstore.Record) error {
	return m.Called(ctx, record).Error(0)
}

func (m *RecordStorageMock) LoadRecords(ctx context.Context) ([]txstore.Record, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]txstore.Record)
	return records, args.Error(1)
}

type FailureReporterMock struct {
	mock.Mock
}

func NewFailureReporterMock(t interface {
	mock.TestingT
	Cleanup(func())
}) *FailureReporterMock {
	m := &FailureReporterMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *FailureReporterMock) ReportFailure(ctx context.Context, failure TransactionFailure) {
	m.Called(ctx, failure)
}
