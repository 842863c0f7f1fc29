package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"shoplist/internal/shopping"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Add(ctx context.Context, item shopping.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockStore) Remove(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) Update(ctx context.Context, id int64, patch shopping.Patch) (int, error) {
	args := m.Called(ctx, id, patch)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) List(ctx context.Context) ([]shopping.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shopping.Item), args.Error(1)
}

func (m *MockStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) Replace(ctx context.Context, items []shopping.Item) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockStore) BeginGeneration(ctx context.Context, taskID uuid.UUID, event string) (Generation, error) {
	args := m.Called(ctx, taskID, event)
	return args.Get(0).(Generation), args.Error(1)
}

func (m *MockStore) CommitGeneration(ctx context.Context, seq int64, items []shopping.Item) error {
	args := m.Called(ctx, seq, items)
	return args.Error(0)
}

func (m *MockStore) FinishGeneration(ctx context.Context, seq int64, state, message string) error {
	args := m.Called(ctx, seq, state, message)
	return args.Error(0)
}

func (m *MockStore) CancelGeneration(ctx context.Context) (Generation, bool, error) {
	args := m.Called(ctx)
	return args.Get(0).(Generation), args.Bool(1), args.Error(2)
}

func (m *MockStore) CurrentGeneration(ctx context.Context) (Generation, bool, error) {
	args := m.Called(ctx)
	return args.Get(0).(Generation), args.Bool(1), args.Error(2)
}
