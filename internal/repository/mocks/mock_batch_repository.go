package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"preflight/internal/model"
	"preflight/internal/repository"
)

type MockBatchRepository struct {
	mock.Mock
}

var _ repository.BatchRepository = (*MockBatchRepository)(nil)

func (m *MockBatchRepository) Create(ctx context.Context, b *model.Batch) (*model.Batch, error) {
	args := m.Called(ctx, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Batch), args.Error(1)
}

func (m *MockBatchRepository) FindByID(ctx context.Context, id string) (*model.Batch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Batch), args.Error(1)
}

func (m *MockBatchRepository) AddDocuments(ctx context.Context, batchID string, documentIDs []string) error {
	args := m.Called(ctx, batchID, documentIDs)
	return args.Error(0)
}

func (m *MockBatchRepository) Watermarks(ctx context.Context, batchID string) (map[string]model.Watermark, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]model.Watermark), args.Error(1)
}

type MockRequestRepository struct {
	mock.Mock
}

var _ repository.RequestRepository = (*MockRequestRepository)(nil)

func (m *MockRequestRepository) Create(ctx context.Context, r *model.ReviewRequest) (*model.ReviewRequest, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReviewRequest), args.Error(1)
}

func (m *MockRequestRepository) FindByIDs(ctx context.Context, ids []string) ([]model.ReviewRequest, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ReviewRequest), args.Error(1)
}
