package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"preflight/internal/model"
	"preflight/internal/repository"
)

type MockEventRepository struct {
	mock.Mock
}

var _ repository.EventRepository = (*MockEventRepository)(nil)

func (m *MockEventRepository) Append(ctx context.Context, ev *model.ActionEvent, expected int) (*model.ActionEvent, bool, error) {
	args := m.Called(ctx, ev, expected)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.ActionEvent), args.Bool(1), args.Error(2)
}

func (m *MockEventRepository) FindByKey(ctx context.Context, documentID string, action model.ActionType, key string) (*model.ActionEvent, error) {
	args := m.Called(ctx, documentID, action, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ActionEvent), args.Error(1)
}

func (m *MockEventRepository) History(ctx context.Context, documentID string) ([]model.ActionEvent, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ActionEvent), args.Error(1)
}

func (m *MockEventRepository) Latest(ctx context.Context, documentID string) (*model.ActionEvent, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ActionEvent), args.Error(1)
}

func (m *MockEventRepository) Count(ctx context.Context, documentID string) (int, error) {
	args := m.Called(ctx, documentID)
	return args.Int(0), args.Error(1)
}
