package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mindmesh-backend/application/commands"
	"mindmesh-backend/application/commands/bus"
	"mindmesh-backend/application/ports"
	"mindmesh-backend/domain/history"
	pkgerrors "mindmesh-backend/pkg/errors"
	"mindmesh-backend/pkg/observability"
)

// RecordChangeHandler turns a committed edit into a history event: it diffs
// the before/after states, appends the delta to the active snapshot's log,
// fans it out for realtime sync, persists the new current state, and cuts a
// fresh snapshot once the event chain grows past the configured cadence.
type RecordChangeHandler struct {
	maps            ports.MapRepository
	graphs          ports.GraphRepository
	snapshots       ports.SnapshotRepository
	events          ports.EventRepository
	eventBus        ports.EventBus
	metrics         *observability.Metrics
	snapshotCadence int
	logger          *zap.Logger
}

// NewRecordChangeHandler creates a new record-change handler. snapshotCadence
// is the number of events after which a new snapshot is cut.
func NewRecordChangeHandler(
	maps ports.MapRepository,
	graphs ports.GraphRepository,
	snapshots ports.SnapshotRepository,
	events ports.EventRepository,
	eventBus ports.EventBus,
	metrics *observability.Metrics,
	snapshotCadence int,
	logger *zap.Logger,
) *RecordChangeHandler {
	return &RecordChangeHandler{
		maps:            maps,
		graphs:          graphs,
		snapshots:       snapshots,
		events:          events,
		eventBus:        eventBus,
		metrics:         metrics,
		snapshotCadence: snapshotCadence,
		logger:          logger,
	}
}

// Handle implements bus.CommandHandler
func (h *RecordChangeHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.RecordChangeCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command type %T", cmd)
	}

	owner, err := h.maps.GetOwner(ctx, c.MapID)
	if err != nil {
		return nil, err
	}
	if owner != c.UserID {
		return nil, pkgerrors.NewForbiddenError("you do not have access to this map")
	}

	delta := history.CalculateDelta(c.OldState, c.NewState)
	if delta == nil {
		return &commands.RecordChangeResult{}, nil
	}
	h.metrics.RecordDeltaSize(ctx, c.MapID, len(delta.Changes))

	snapshot, err := h.activeSnapshot(ctx, c)
	if err != nil {
		return nil, err
	}

	existing, err := h.events.ListBySnapshot(ctx, snapshot.ID)
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to load history events").WithCause(err)
	}

	event := &history.Event{
		ID:         uuid.New().String(),
		MapID:      c.MapID,
		SnapshotID: snapshot.ID,
		EventIndex: len(existing),
		Delta:      delta,
		UserID:     c.UserID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.events.Append(ctx, event); err != nil {
		return nil, pkgerrors.NewInternalError("failed to append history event").WithCause(err)
	}

	// Fan-out is best effort: a lagging sync channel must not fail the commit.
	if err := h.eventBus.PublishDelta(ctx, c.MapID, event.ID, delta); err != nil {
		h.logger.Warn("Failed to publish delta", zap.String("mapID", c.MapID), zap.Error(err))
	}

	if err := h.graphs.PutNodes(ctx, c.MapID, c.NewState.Nodes); err != nil {
		return nil, pkgerrors.NewCollectionWriteError("nodes", err)
	}
	if err := h.graphs.PutEdges(ctx, c.MapID, c.NewState.Edges); err != nil {
		return nil, pkgerrors.NewCollectionWriteError("edges", err)
	}

	result := &commands.RecordChangeResult{
		EventID:    event.ID,
		SnapshotID: snapshot.ID,
		EventIndex: event.EventIndex,
		Delta:      delta,
	}

	if event.EventIndex+1 >= h.snapshotCadence {
		next := &history.Snapshot{
			ID:            uuid.New().String(),
			MapID:         c.MapID,
			SnapshotIndex: snapshot.SnapshotIndex + 1,
			State:         history.CompressState(c.NewState),
			CreatedAt:     time.Now().UTC(),
		}
		if err := h.snapshots.Save(ctx, next); err != nil {
			// The event log is intact; the next commit will retry the cut.
			h.logger.Warn("Failed to cut snapshot", zap.String("mapID", c.MapID), zap.Error(err))
		} else {
			result.SnapshotTaken = true
			h.logger.Info("Snapshot taken",
				zap.String("mapID", c.MapID),
				zap.String("snapshotID", next.ID),
				zap.Int("snapshotIndex", next.SnapshotIndex),
			)
		}
	}

	return result, nil
}

// activeSnapshot returns the latest snapshot for the map, bootstrapping one
// from the pre-edit state when the map has no history yet.
func (h *RecordChangeHandler) activeSnapshot(ctx context.Context, c commands.RecordChangeCommand) (*history.Snapshot, error) {
	snapshot, err := h.snapshots.GetLatest(ctx, c.MapID)
	if err == nil {
		return snapshot, nil
	}
	if !pkgerrors.IsNotFound(err) {
		return nil, err
	}

	initial := &history.Snapshot{
		ID:            uuid.New().String(),
		MapID:         c.MapID,
		SnapshotIndex: 0,
		State:         history.CompressState(c.OldState),
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.snapshots.Save(ctx, initial); err != nil {
		return nil, pkgerrors.NewInternalError("failed to create initial snapshot").WithCause(err)
	}
	return initial, nil
}
