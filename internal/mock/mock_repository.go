package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/graph-analytics/internal/repository"
	"github.com/graph-analytics/pkg/model"
)

// MockRunRepository is a mock implementation of the RunRepository interface.
type MockRunRepository struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockRunRepository) Create(ctx context.Context, record *repository.RunRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// Save mocks the Save method.
func (m *MockRunRepository) Save(ctx context.Context, record *repository.RunRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// GetByRunID mocks the GetByRunID method.
func (m *MockRunRepository) GetByRunID(ctx context.Context, runID string) (*repository.RunRecord, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.RunRecord), args.Error(1)
}

// ListByAlgorithm mocks the ListByAlgorithm method.
func (m *MockRunRepository) ListByAlgorithm(ctx context.Context, kind model.AlgorithmKind, limit int) ([]*repository.RunRecord, error) {
	args := m.Called(ctx, kind, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.RunRecord), args.Error(1)
}

// ListRecent mocks the ListRecent method.
func (m *MockRunRepository) ListRecent(ctx context.Context, limit int) ([]*repository.RunRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.RunRecord), args.Error(1)
}

// UpdateStatus mocks the UpdateStatus method.
func (m *MockRunRepository) UpdateStatus(ctx context.Context, runID string, status model.RunStatus, errMsg string) error {
	args := m.Called(ctx, runID, status, errMsg)
	return args.Error(0)
}

// ExpectCreate sets up an expectation for Create of runID.
func (m *MockRunRepository) ExpectCreate(runID string, err error) *mock.Call {
	return m.On("Create", mock.Anything, mock.MatchedBy(func(r *repository.RunRecord) bool {
		return r.RunID == runID
	})).Return(err)
}

// ExpectSave sets up an expectation for Save of a record with status.
func (m *MockRunRepository) ExpectSave(status model.RunStatus, err error) *mock.Call {
	return m.On("Save", mock.Anything, mock.MatchedBy(func(r *repository.RunRecord) bool {
		return r.Status == status
	})).Return(err)
}

// ExpectUpdateStatus sets up an expectation for UpdateStatus with any
// error message.
func (m *MockRunRepository) ExpectUpdateStatus(runID string, status model.RunStatus, err error) *mock.Call {
	return m.On("UpdateStatus", mock.Anything, runID, status, mock.Anything).Return(err)
}

var _ repository.RunRepository = (*MockRunRepository)(nil)
