package commands

import (
	"mindmesh-backend/domain/graph"
	"mindmesh-backend/domain/history"
	pkgerrors "mindmesh-backend/pkg/errors"
)

// RecordChangeCommand commits a user edit: the state of the map before and
// after the edit. The handler computes the delta, appends it to the history
// log and persists the new current state.
type RecordChangeCommand struct {
	MapID    string
	UserID   string
	OldState graph.State
	NewState graph.State
}

// Validate implements bus.Command
func (c RecordChangeCommand) Validate() error {
	if c.MapID == "" {
		return pkgerrors.NewValidationError("mapID is required")
	}
	if c.UserID == "" {
		return pkgerrors.NewValidationError("userID is required")
	}
	return nil
}

// RecordChangeResult reports what the commit produced. Delta is nil when the
// two states were structurally equal and nothing was recorded.
type RecordChangeResult struct {
	EventID       string         `json:"eventId,omitempty"`
	SnapshotID    string         `json:"snapshotId"`
	EventIndex    int            `json:"eventIndex"`
	Delta         *history.Delta `json:"delta,omitempty"`
	SnapshotTaken bool           `json:"snapshotTaken"`
}
