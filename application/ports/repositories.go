package ports

import (
	"context"

	"mindmesh-backend/domain/graph"
	"mindmesh-backend/domain/history"
)

// MapRepository answers ownership and existence questions about maps.
type MapRepository interface {
	// GetOwner returns the owning user id of a map. A not-found error means
	// the map does not exist.
	GetOwner(ctx context.Context, mapID string) (string, error)
}

// GraphRepository persists the current entity collections of a map. Nodes and
// edges are written independently; there is no transaction spanning both.
type GraphRepository interface {
	GetState(ctx context.Context, mapID string) (graph.State, error)
	PutNodes(ctx context.Context, mapID string, nodes []graph.Entity) error
	PutEdges(ctx context.Context, mapID string, edges []graph.Entity) error
}

// SnapshotRepository stores full compressed graph states.
type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *history.Snapshot) error
	GetByID(ctx context.Context, mapID, snapshotID string) (*history.Snapshot, error)
	GetLatest(ctx context.Context, mapID string) (*history.Snapshot, error)
}

// EventRepository stores deltas ordered within a snapshot's timeline.
type EventRepository interface {
	Append(ctx context.Context, event *history.Event) error
	// ListBySnapshot returns events in ascending EventIndex order.
	ListBySnapshot(ctx context.Context, snapshotID string) ([]history.Event, error)
	// FindByID resolves an event id to its stored event, snapshot binding
	// included. A not-found error means the event does not exist for the map.
	FindByID(ctx context.Context, mapID, eventID string) (*history.Event, error)
}

// EventBus fans committed deltas out to the realtime sync layer. The socket
// transport consuming them lives outside this service.
type EventBus interface {
	PublishDelta(ctx context.Context, mapID, eventID string, delta *history.Delta) error
}
