package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"preflight/internal/model"
	"preflight/internal/repository"
)

type MockDocumentRepository struct {
	mock.Mock
}

var _ repository.DocumentRepository = (*MockDocumentRepository)(nil)

func (m *MockDocumentRepository) Upsert(ctx context.Context, doc *model.Document) (*model.Document, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Document]), args.Error(1)
}

type MockFindingRepository struct {
	mock.Mock
}

var _ repository.FindingRepository = (*MockFindingRepository)(nil)

func (m *MockFindingRepository) UpsertMany(ctx context.Context, documentID string, findings []model.Finding) error {
	args := m.Called(ctx, documentID, findings)
	return args.Error(0)
}

func (m *MockFindingRepository) ListByDocument(ctx context.Context, documentID string) ([]model.Finding, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Finding), args.Error(1)
}

func (m *MockFindingRepository) UpdateStatus(ctx context.Context, id string, status model.FindingStatus, at time.Time) (*model.Finding, error) {
	args := m.Called(ctx, id, status, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Finding), args.Error(1)
}

type MockSnapshotReader struct {
	mock.Mock
}

var _ repository.SnapshotReader = (*MockSnapshotReader)(nil)

func (m *MockSnapshotReader) Snapshot(ctx context.Context, documentID string) (*repository.Snapshot, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Snapshot), args.Error(1)
}
