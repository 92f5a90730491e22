package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/aot-inspect/pkg/model"
)

// MockFootprintRepository is a mock implementation of the
// repository.FootprintRepository interface.
type MockFootprintRepository struct {
	mock.Mock
}

// Save mocks the Save method.
func (m *MockFootprintRepository) Save(ctx context.Context, report *model.CacheReport) (int64, error) {
	args := m.Called(ctx, report)
	return args.Get(0).(int64), args.Error(1)
}

// ListSnapshots mocks the ListSnapshots method.
func (m *MockFootprintRepository) ListSnapshots(ctx context.Context, source string, limit int) ([]model.Snapshot, error) {
	args := m.Called(ctx, source, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Snapshot), args.Error(1)
}

// GetSnapshot mocks the GetSnapshot method.
func (m *MockFootprintRepository) GetSnapshot(ctx context.Context, id int64) (*model.Snapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Snapshot), args.Error(1)
}

// ClassHistory mocks the ClassHistory method.
func (m *MockFootprintRepository) ClassHistory(ctx context.Context, name string) ([]model.ClassHistoryPoint, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ClassHistoryPoint), args.Error(1)
}

// DeleteSnapshot mocks the DeleteSnapshot method.
func (m *MockFootprintRepository) DeleteSnapshot(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ExpectSave sets up an expectation for Save of any report.
func (m *MockFootprintRepository) ExpectSave(id int64, err error) *mock.Call {
	return m.On("Save", mock.Anything, mock.Anything).Return(id, err)
}

// ExpectClassHistory sets up an expectation for ClassHistory.
func (m *MockFootprintRepository) ExpectClassHistory(name string, points []model.ClassHistoryPoint, err error) *mock.Call {
	return m.On("ClassHistory", mock.Anything, name).Return(points, err)
}
