package commands

import (
	"time"

	"mindmesh-backend/domain/graph"
	pkgerrors "mindmesh-backend/pkg/errors"
)

// RevertMapCommand reconstructs a historical state of a map and makes it the
// current state. Either SnapshotID or EventID must be given: a bare snapshot
// id reverts to the snapshot itself, an event id reverts to the state just
// before that event.
type RevertMapCommand struct {
	MapID      string
	UserID     string
	SnapshotID string
	EventID    string
}

// Validate implements bus.Command
func (c RevertMapCommand) Validate() error {
	if c.MapID == "" {
		return pkgerrors.NewValidationError("mapID is required")
	}
	if c.UserID == "" {
		return pkgerrors.NewValidationError("userID is required")
	}
	if c.SnapshotID == "" && c.EventID == "" {
		return pkgerrors.NewValidationError("either snapshotId or eventId is required")
	}
	return nil
}

// RevertResult is the reconstructed and persisted state
type RevertResult struct {
	Nodes           []graph.Entity `json:"nodes"`
	Edges           []graph.Entity `json:"edges"`
	SnapshotIndex   int            `json:"snapshotIndex"`
	RevertTimestamp *time.Time     `json:"revertTimestamp,omitempty"`
	Message         string         `json:"message"`
}
