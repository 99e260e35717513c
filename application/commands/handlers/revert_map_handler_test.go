package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mindmesh-backend/application/commands"
	"mindmesh-backend/domain/graph"
	"mindmesh-backend/domain/history"
	pkgerrors "mindmesh-backend/pkg/errors"
	"mindmesh-backend/pkg/observability"
)

func noopMetrics() *observability.Metrics {
	return observability.NewMetrics(nil, "mindmesh", false, zap.NewNop())
}

func newRevertHandler(maps *MockMapRepository, graphs *MockGraphRepository, snapshots *MockSnapshotRepository, events *MockEventRepository) *RevertMapHandler {
	return NewRevertMapHandler(maps, graphs, snapshots, events, noopMetrics(), zap.NewNop())
}

func TestRevertMapHandler_RevertToEvent(t *testing.T) {
	// Arrange
	ctx := context.Background()
	maps := new(MockMapRepository)
	graphs := new(MockGraphRepository)
	snapshots := new(MockSnapshotRepository)
	events := new(MockEventRepository)

	snapshot := &history.Snapshot{
		ID:            "snap-1",
		MapID:         "map-1",
		SnapshotIndex: 3,
		State: graph.State{
			Nodes: []graph.Entity{{"id": "n1", "type": "default", "data": map[string]any{"label": "root"}}},
		},
		CreatedAt: time.Now().UTC(),
	}
	log := []history.Event{
		{
			ID: "ev-1", SnapshotID: "snap-1", EventIndex: 0,
			Delta: &history.Delta{
				Operation:  history.OperationAdd,
				EntityType: history.EntityNode,
				Changes: []history.PatchOp{
					{ID: "n2", Type: history.EntityNode, Op: history.OpAdd, Value: graph.Entity{"id": "n2", "type": "default"}},
				},
			},
		},
		{
			ID: "ev-2", SnapshotID: "snap-1", EventIndex: 1,
			Delta: &history.Delta{
				Operation:  history.OperationDelete,
				EntityType: history.EntityNode,
				Changes: []history.PatchOp{
					{ID: "n1", Type: history.EntityNode, Op: history.OpRemove},
				},
			},
		},
	}

	maps.On("GetOwner", ctx, "map-1").Return("user-1", nil)
	events.On("FindByID", ctx, "map-1", "ev-2").Return(&log[1], nil)
	snapshots.On("GetByID", ctx, "map-1", "snap-1").Return(snapshot, nil)
	events.On("ListBySnapshot", ctx, "snap-1").Return(log, nil)
	graphs.On("PutNodes", ctx, "map-1", mock.Anything).Return(nil)
	graphs.On("PutEdges", ctx, "map-1", mock.Anything).Return(nil)

	handler := newRevertHandler(maps, graphs, snapshots, events)

	// Act: reverting to ev-2 replays only ev-1, so both nodes survive.
	result, err := handler.Handle(ctx, commands.RevertMapCommand{
		MapID: "map-1", UserID: "user-1", EventID: "ev-2",
	})

	// Assert
	require.NoError(t, err)
	revert, ok := result.(*commands.RevertResult)
	require.True(t, ok)
	require.Len(t, revert.Nodes, 2)
	assert.Equal(t, "n1", revert.Nodes[0].ID())
	assert.Equal(t, "n2", revert.Nodes[1].ID())
	assert.Equal(t, 3, revert.SnapshotIndex)
	maps.AssertExpectations(t)
	graphs.AssertExpectations(t)
	snapshots.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestRevertMapHandler_RevertToSnapshot(t *testing.T) {
	// Arrange
	ctx := context.Background()
	maps := new(MockMapRepository)
	graphs := new(MockGraphRepository)
	snapshots := new(MockSnapshotRepository)
	events := new(MockEventRepository)

	snapshot := &history.Snapshot{
		ID:    "snap-1",
		MapID: "map-1",
		State: graph.State{
			Nodes: []graph.Entity{{"id": "n1", "type": "default"}},
			Edges: []graph.Entity{{"id": "e1", "source": "n1", "target": "n2"}},
		},
	}
	log := []history.Event{
		{
			ID: "ev-1", SnapshotID: "snap-1", EventIndex: 0,
			Delta: &history.Delta{
				Operation:  history.OperationDelete,
				EntityType: history.EntityEdge,
				Changes:    []history.PatchOp{{ID: "e1", Type: history.EntityEdge, Op: history.OpRemove}},
			},
		},
	}

	maps.On("GetOwner", ctx, "map-1").Return("user-1", nil)
	snapshots.On("GetByID", ctx, "map-1", "snap-1").Return(snapshot, nil)
	events.On("ListBySnapshot", ctx, "snap-1").Return(log, nil)
	graphs.On("PutNodes", ctx, "map-1", mock.Anything).Return(nil)
	graphs.On("PutEdges", ctx, "map-1", mock.Anything).Return(nil)

	handler := newRevertHandler(maps, graphs, snapshots, events)

	// Act: a bare snapshot id means the snapshot state itself, no replay.
	result, err := handler.Handle(ctx, commands.RevertMapCommand{
		MapID: "map-1", UserID: "user-1", SnapshotID: "snap-1",
	})

	// Assert
	require.NoError(t, err)
	revert := result.(*commands.RevertResult)
	require.Len(t, revert.Edges, 1)
	assert.Equal(t, "e1", revert.Edges[0].ID())
}

func TestRevertMapHandler_UnknownEventRevertsToEndOfLog(t *testing.T) {
	// Arrange
	ctx := context.Background()
	maps := new(MockMapRepository)
	graphs := new(MockGraphRepository)
	snapshots := new(MockSnapshotRepository)
	events := new(MockEventRepository)

	snapshot := &history.Snapshot{
		ID:    "snap-1",
		MapID: "map-1",
		State: graph.State{Nodes: []graph.Entity{{"id": "n1"}}},
	}
	target := &history.Event{ID: "ev-gone", SnapshotID: "snap-1", EventIndex: 5}
	log := []history.Event{
		{
			ID: "ev-1", SnapshotID: "snap-1", EventIndex: 0,
			Delta: &history.Delta{
				Operation:  history.OperationDelete,
				EntityType: history.EntityNode,
				Changes:    []history.PatchOp{{ID: "n1", Type: history.EntityNode, Op: history.OpRemove}},
			},
		},
	}

	maps.On("GetOwner", ctx, "map-1").Return("user-1", nil)
	events.On("FindByID", ctx, "map-1", "ev-gone").Return(target, nil)
	snapshots.On("GetByID", ctx, "map-1", "snap-1").Return(snapshot, nil)
	events.On("ListBySnapshot", ctx, "snap-1").Return(log, nil)
	graphs.On("PutNodes", ctx, "map-1", mock.Anything).Return(nil)
	graphs.On("PutEdges", ctx, "map-1", mock.Anything).Return(nil)

	handler := newRevertHandler(maps, graphs, snapshots, events)

	// Act: the target id is not in the stored log, so every event applies.
	result, err := handler.Handle(ctx, commands.RevertMapCommand{
		MapID: "map-1", UserID: "user-1", EventID: "ev-gone",
	})

	// Assert
	require.NoError(t, err)
	revert := result.(*commands.RevertResult)
	assert.Empty(t, revert.Nodes)
}

func TestRevertMapHandler_NotOwner(t *testing.T) {
	ctx := context.Background()
	maps := new(MockMapRepository)
	maps.On("GetOwner", ctx, "map-1").Return("someone-else", nil)

	handler := newRevertHandler(maps, new(MockGraphRepository), new(MockSnapshotRepository), new(MockEventRepository))

	_, err := handler.Handle(ctx, commands.RevertMapCommand{
		MapID: "map-1", UserID: "user-1", SnapshotID: "snap-1",
	})

	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, pkgerrors.HTTPStatusOf(err))
}

func TestRevertMapHandler_FailedNodeWriteNamesCollection(t *testing.T) {
	// Arrange
	ctx := context.Background()
	maps := new(MockMapRepository)
	graphs := new(MockGraphRepository)
	snapshots := new(MockSnapshotRepository)
	events := new(MockEventRepository)

	snapshot := &history.Snapshot{ID: "snap-1", MapID: "map-1"}

	maps.On("GetOwner", ctx, "map-1").Return("user-1", nil)
	snapshots.On("GetByID", ctx, "map-1", "snap-1").Return(snapshot, nil)
	events.On("ListBySnapshot", ctx, "snap-1").Return([]history.Event{}, nil)
	graphs.On("PutNodes", ctx, "map-1", mock.Anything).Return(errors.New("throttled"))

	handler := newRevertHandler(maps, graphs, snapshots, events)

	// Act
	_, err := handler.Handle(ctx, commands.RevertMapCommand{
		MapID: "map-1", UserID: "user-1", SnapshotID: "snap-1",
	})

	// Assert: the error reports which collection was left unwritten. The
	// edges write never runs.
	require.Error(t, err)
	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "nodes", appErr.Details["collection"])
	graphs.AssertNotCalled(t, "PutEdges", ctx, "map-1", mock.Anything)
}
