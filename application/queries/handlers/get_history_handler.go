package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mindmesh-backend/application/ports"
	"mindmesh-backend/application/queries"
	"mindmesh-backend/application/queries/bus"
	"mindmesh-backend/domain/history"
	pkgerrors "mindmesh-backend/pkg/errors"
)

// GetHistoryHandler serves the event timeline of a map's latest snapshot.
type GetHistoryHandler struct {
	maps      ports.MapRepository
	snapshots ports.SnapshotRepository
	events    ports.EventRepository
	logger    *zap.Logger
}

// NewGetHistoryHandler creates a new history query handler
func NewGetHistoryHandler(
	maps ports.MapRepository,
	snapshots ports.SnapshotRepository,
	events ports.EventRepository,
	logger *zap.Logger,
) *GetHistoryHandler {
	return &GetHistoryHandler{
		maps:      maps,
		snapshots: snapshots,
		events:    events,
		logger:    logger,
	}
}

// Handle implements bus.QueryHandler
func (h *GetHistoryHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.GetHistoryQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", query)
	}

	owner, err := h.maps.GetOwner(ctx, q.MapID)
	if err != nil {
		return nil, err
	}
	if owner != q.UserID {
		return nil, pkgerrors.NewForbiddenError("you do not have access to this map")
	}

	snapshot, err := h.snapshots.GetLatest(ctx, q.MapID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			// A map with no committed edits has an empty timeline.
			return &queries.HistoryTimeline{Events: []history.Event{}}, nil
		}
		return nil, err
	}

	events, err := h.events.ListBySnapshot(ctx, snapshot.ID)
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to load history events").WithCause(err)
	}

	// Most recent first for display.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}

	return &queries.HistoryTimeline{
		SnapshotID:    snapshot.ID,
		SnapshotIndex: snapshot.SnapshotIndex,
		Events:        events,
	}, nil
}
