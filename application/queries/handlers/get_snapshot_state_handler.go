package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mindmesh-backend/application/ports"
	"mindmesh-backend/application/queries"
	"mindmesh-backend/application/queries/bus"
	pkgerrors "mindmesh-backend/pkg/errors"
)

// GetSnapshotStateHandler serves a stored snapshot's full graph state.
type GetSnapshotStateHandler struct {
	maps      ports.MapRepository
	snapshots ports.SnapshotRepository
	logger    *zap.Logger
}

// NewGetSnapshotStateHandler creates a new snapshot query handler
func NewGetSnapshotStateHandler(
	maps ports.MapRepository,
	snapshots ports.SnapshotRepository,
	logger *zap.Logger,
) *GetSnapshotStateHandler {
	return &GetSnapshotStateHandler{
		maps:      maps,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Handle implements bus.QueryHandler
func (h *GetSnapshotStateHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.GetSnapshotStateQuery)
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

	return h.snapshots.GetByID(ctx, q.MapID, q.SnapshotID)
}
