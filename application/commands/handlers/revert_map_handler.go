package handlers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mindmesh-backend/application/commands"
	"mindmesh-backend/application/commands/bus"
	"mindmesh-backend/application/ports"
	"mindmesh-backend/domain/history"
	pkgerrors "mindmesh-backend/pkg/errors"
	"mindmesh-backend/pkg/observability"
)

// RevertMapHandler drives a revert end to end: resolve the target snapshot,
// replay its events up to (but not including) the target event, then persist
// the reconstructed collections as the map's current state.
type RevertMapHandler struct {
	maps      ports.MapRepository
	graphs    ports.GraphRepository
	snapshots ports.SnapshotRepository
	events    ports.EventRepository
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewRevertMapHandler creates a new revert handler
func NewRevertMapHandler(
	maps ports.MapRepository,
	graphs ports.GraphRepository,
	snapshots ports.SnapshotRepository,
	events ports.EventRepository,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *RevertMapHandler {
	return &RevertMapHandler{
		maps:      maps,
		graphs:    graphs,
		snapshots: snapshots,
		events:    events,
		metrics:   metrics,
		logger:    logger,
	}
}

// Handle implements bus.CommandHandler
func (h *RevertMapHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.RevertMapCommand)
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

	snapshotID := c.SnapshotID
	if snapshotID == "" {
		event, err := h.events.FindByID(ctx, c.MapID, c.EventID)
		if err != nil {
			return nil, err
		}
		snapshotID = event.SnapshotID
	}

	snapshot, err := h.snapshots.GetByID(ctx, c.MapID, snapshotID)
	if err != nil {
		return nil, err
	}

	events, err := h.events.ListBySnapshot(ctx, snapshot.ID)
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to load history events").WithCause(err)
	}

	start := time.Now()
	state, found := history.Replay(snapshot.State, events, c.EventID)
	if !found && c.EventID != "" {
		// The target event is not in this snapshot's log; the state after all
		// available events is returned instead of failing the revert.
		h.logger.Warn("Revert target event not found in snapshot timeline",
			zap.String("mapID", c.MapID),
			zap.String("snapshotID", snapshot.ID),
			zap.String("eventID", c.EventID),
		)
	}
	h.metrics.RecordReplayLength(ctx, c.MapID, len(events))
	h.metrics.RecordReplayDuration(ctx, c.MapID, time.Since(start))

	// Two independent writes: a failure names the collection that did not
	// make it so the caller knows what is left inconsistent.
	if err := h.graphs.PutNodes(ctx, c.MapID, state.Nodes); err != nil {
		return nil, pkgerrors.NewCollectionWriteError("nodes", err)
	}
	if err := h.graphs.PutEdges(ctx, c.MapID, state.Edges); err != nil {
		return nil, pkgerrors.NewCollectionWriteError("edges", err)
	}

	h.logger.Info("Map reverted",
		zap.String("mapID", c.MapID),
		zap.String("snapshotID", snapshot.ID),
		zap.String("eventID", c.EventID),
		zap.Int("replayedEvents", len(events)),
		zap.Int("nodes", len(state.Nodes)),
		zap.Int("edges", len(state.Edges)),
	)

	now := time.Now().UTC()
	return &commands.RevertResult{
		Nodes:           state.Nodes,
		Edges:           state.Edges,
		SnapshotIndex:   snapshot.SnapshotIndex,
		RevertTimestamp: &now,
		Message:         "map reverted successfully",
	}, nil
}
