package queries

import (
	"mindmesh-backend/domain/history"
	pkgerrors "mindmesh-backend/pkg/errors"
)

// GetHistoryQuery lists the event timeline of a map's latest snapshot.
type GetHistoryQuery struct {
	MapID  string
	UserID string
}

// Validate implements bus.Query
func (q GetHistoryQuery) Validate() error {
	if q.MapID == "" {
		return pkgerrors.NewValidationError("mapID is required")
	}
	if q.UserID == "" {
		return pkgerrors.NewValidationError("userID is required")
	}
	return nil
}

// HistoryTimeline is the event log of one snapshot, most recent event first.
type HistoryTimeline struct {
	SnapshotID    string          `json:"snapshotId"`
	SnapshotIndex int             `json:"snapshotIndex"`
	Events        []history.Event `json:"events"`
}
