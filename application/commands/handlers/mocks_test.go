package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mindmesh-backend/domain/graph"
	"mindmesh-backend/domain/history"
)

type MockMapRepository struct {
	mock.Mock
}

func (m *MockMapRepository) GetOwner(ctx context.Context, mapID string) (string, error) {
	args := m.Called(ctx, mapID)
	return args.String(0), args.Error(1)
}

type MockGraphRepository struct {
	mock.Mock
}

func (m *MockGraphRepository) GetState(ctx context.Context, mapID string) (graph.State, error) {
	args := m.Called(ctx, mapID)
	return args.Get(0).(graph.State), args.Error(1)
}

func (m *MockGraphRepository) PutNodes(ctx context.Context, mapID string, nodes []graph.Entity) error {
	args := m.Called(ctx, mapID, nodes)
	return args.Error(0)
}

func (m *MockGraphRepository) PutEdges(ctx context.Context, mapID string, edges []graph.Entity) error {
	args := m.Called(ctx, mapID, edges)
	return args.Error(0)
}

type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) Save(ctx context.Context, snapshot *history.Snapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotRepository) GetByID(ctx context.Context, mapID, snapshotID string) (*history.Snapshot, error) {
	args := m.Called(ctx, mapID, snapshotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*history.Snapshot), args.Error(1)
}

func (m *MockSnapshotRepository) GetLatest(ctx context.Context, mapID string) (*history.Snapshot, error) {
	args := m.Called(ctx, mapID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*history.Snapshot), args.Error(1)
}

type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Append(ctx context.Context, event *history.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) ListBySnapshot(ctx context.Context, snapshotID string) ([]history.Event, error) {
	args := m.Called(ctx, snapshotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]history.Event), args.Error(1)
}

func (m *MockEventRepository) FindByID(ctx context.Context, mapID, eventID string) (*history.Event, error) {
	args := m.Called(ctx, mapID, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*history.Event), args.Error(1)
}

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) PublishDelta(ctx context.Context, mapID, eventID string, delta *history.Delta) error {
	args := m.Called(ctx, mapID, eventID, delta)
	return args.Error(0)
}
