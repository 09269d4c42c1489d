package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"preflight/internal/model"
	"preflight/internal/service"
)

type MockPreflightService struct {
	mock.Mock
}

var _ service.PreflightService = (*MockPreflightService)(nil)

func (m *MockPreflightService) Submit(ctx context.Context, in service.SubmitInput) (*model.ActionResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ActionResult), args.Error(1)
}

func (m *MockPreflightService) Evaluate(ctx context.Context, documentID string) (*model.Evaluation, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Evaluation), args.Error(1)
}

func (m *MockPreflightService) History(ctx context.Context, documentID string) (*service.HistoryResult, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.HistoryResult), args.Error(1)
}

func (m *MockPreflightService) Ingest(ctx context.Context, in service.IngestInput) (*service.IngestResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

func (m *MockPreflightService) UpdateFindingStatus(ctx context.Context, findingID, status string) (*model.Finding, error) {
	args := m.Called(ctx, findingID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Finding), args.Error(1)
}

func (m *MockPreflightService) CreateRequest(ctx context.Context, in service.RequestInput) (*model.ReviewRequest, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReviewRequest), args.Error(1)
}

func (m *MockPreflightService) Export(ctx context.Context, in service.ExportInput) (*model.ExportPayload, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExportPayload), args.Error(1)
}

func (m *MockPreflightService) OpenExport(ctx context.Context, exportID string) (io.ReadCloser, error) {
	args := m.Called(ctx, exportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

type MockBatchService struct {
	mock.Mock
}

var _ service.BatchService = (*MockBatchService)(nil)

func (m *MockBatchService) Create(ctx context.Context, id, name string) (*model.Batch, error) {
	args := m.Called(ctx, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Batch), args.Error(1)
}

func (m *MockBatchService) AddDocuments(ctx context.Context, batchID string, documentIDs []string) error {
	args := m.Called(ctx, batchID, documentIDs)
	return args.Error(0)
}

func (m *MockBatchService) Health(ctx context.Context, batchID string) (*model.BatchHealth, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BatchHealth), args.Error(1)
}

func (m *MockBatchService) Invalidate(documentID string) {
	m.Called(documentID)
}
