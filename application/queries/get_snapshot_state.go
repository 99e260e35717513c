package queries

import (
	pkgerrors "mindmesh-backend/pkg/errors"
)

// GetSnapshotStateQuery fetches a snapshot's full compressed graph state.
type GetSnapshotStateQuery struct {
	MapID      string
	SnapshotID string
	UserID     string
}

// Validate implements bus.Query
func (q GetSnapshotStateQuery) Validate() error {
	if q.MapID == "" {
		return pkgerrors.NewValidationError("mapID is required")
	}
	if q.SnapshotID == "" {
		return pkgerrors.NewValidationError("snapshotId is required")
	}
	if q.UserID == "" {
		return pkgerrors.NewValidationError("userID is required")
	}
	return nil
}
