package history

import (
	"sort"
	"time"

	"mindmesh-backend/domain/graph"
)

// Snapshot is a full, compressed graph state captured at a point in time.
// SnapshotIndex orders snapshots within a map's timeline.
type Snapshot struct {
	ID            string      `json:"id"`
	MapID         string      `json:"map_id"`
	SnapshotIndex int         `json:"snapshot_index"`
	State         graph.State `json:"state"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Event is one stored delta, bound to a snapshot and ordered by EventIndex
// within it.
type Event struct {
	ID         string    `json:"id"`
	MapID      string    `json:"map_id,omitempty"`
	SnapshotID string    `json:"snapshot_id"`
	EventIndex int       `json:"event_index"`
	Delta      *Delta    `json:"delta"`
	UserID     string    `json:"user_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Replay reconstructs the state immediately preceding targetEventID by
// applying the snapshot's events in ascending EventIndex order, stopping
// before the target event (exclusive: the result is "as of just before this
// event"). An empty targetEventID returns the snapshot state unchanged.
//
// The second return reports whether the target was found. When it is false
// the returned state reflects every available event; the caller decides
// whether that degraded result is acceptable.
//
// Events must be replayed strictly in order: a later patch may target a path
// that exists only because an earlier add introduced it.
func Replay(state graph.State, events []Event, targetEventID string) (graph.State, bool) {
	out := graph.State{
		Nodes: append([]graph.Entity(nil), state.Nodes...),
		Edges: append([]graph.Entity(nil), state.Edges...),
	}
	if targetEventID == "" {
		return out, true
	}

	ordered := append([]Event(nil), events...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EventIndex < ordered[j].EventIndex
	})

	for _, ev := range ordered {
		if ev.ID == targetEventID {
			return out, true
		}
		out = ApplyDelta(out, ev.Delta)
	}
	return out, false
}
