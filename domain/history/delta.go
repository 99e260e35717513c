package history

import (
	"sort"

	"mindmesh-backend/domain/graph"
)

// EntityKind says which collection a change targets.
type EntityKind string

const (
	EntityNode  EntityKind = "node"
	EntityEdge  EntityKind = "edge"
	EntityMixed EntityKind = "mixed"
)

// OpKind is the kind of a single patch operation.
type OpKind string

const (
	OpAdd    OpKind = "add"
	OpRemove OpKind = "remove"
	OpPatch  OpKind = "patch"
)

// Operation summarizes a whole delta.
type Operation string

const (
	OperationAdd    Operation = "add"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
	OperationBatch  Operation = "batch"
)

// PatchOp is one add/remove/patch instruction targeting a single entity by id.
// Value is set only for add (a minimized entity); Patch only for patch. A
// patch never contains the "id" key: identity is immutable once created.
type PatchOp struct {
	ID    string       `json:"id"`
	Type  EntityKind   `json:"type"`
	Op    OpKind       `json:"op"`
	Value graph.Entity `json:"value,omitempty"`
	Patch Patch        `json:"patch,omitempty"`
}

// Delta is the typed, minimal difference between two graph states. It is the
// unit stored per history event and the unit broadcast for realtime sync.
type Delta struct {
	Operation  Operation  `json:"operation"`
	EntityType EntityKind `json:"entityType"`
	Changes    []PatchOp  `json:"changes"`
}

// CalculateDelta compares two full graph states and returns the delta that
// transforms old into new, or nil when the states are structurally equal
// ignoring SkipKeys. Changes are deterministic: nodes before edges, each
// group sorted by id.
func CalculateDelta(oldState, newState graph.State) *Delta {
	changes := diffCollection(oldState.Nodes, newState.Nodes, EntityNode, MinimizeNode)
	changes = append(changes, diffCollection(oldState.Edges, newState.Edges, EntityEdge, MinimizeEdge)...)
	if len(changes) == 0 {
		return nil
	}

	return &Delta{
		Operation:  summarizeOperation(changes),
		EntityType: summarizeEntityType(changes),
		Changes:    changes,
	}
}

func diffCollection(old, new []graph.Entity, kind EntityKind, minimize func(graph.Entity) graph.Entity) []PatchOp {
	oldByID := indexByID(old)
	newByID := indexByID(new)

	ids := make([]string, 0, len(oldByID)+len(newByID))
	for id := range oldByID {
		ids = append(ids, id)
	}
	for id := range newByID {
		if _, in := oldByID[id]; !in {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var ops []PatchOp
	for _, id := range ids {
		oldEnt, inOld := oldByID[id]
		newEnt, inNew := newByID[id]
		switch {
		case !inOld:
			ops = append(ops, PatchOp{ID: id, Type: kind, Op: OpAdd, Value: minimize(newEnt)})
		case !inNew:
			ops = append(ops, PatchOp{ID: id, Type: kind, Op: OpRemove})
		default:
			patch := diffEntities(oldEnt, newEnt)
			if len(patch) > 0 {
				ops = append(ops, PatchOp{ID: id, Type: kind, Op: OpPatch, Patch: patch})
			}
		}
	}
	return ops
}

// diffEntities produces the dotted-path patch between two entities, with the
// id key stripped.
func diffEntities(old, new graph.Entity) Patch {
	patch := make(Patch)
	Diff("", map[string]any(old), map[string]any(new), patch)
	delete(patch, "id")
	return patch
}

func indexByID(entities []graph.Entity) map[string]graph.Entity {
	byID := make(map[string]graph.Entity, len(entities))
	for _, e := range entities {
		if id := e.ID(); id != "" {
			byID[id] = e
		}
	}
	return byID
}

func summarizeOperation(changes []PatchOp) Operation {
	if len(changes) > 1 {
		return OperationBatch
	}
	switch changes[0].Op {
	case OpAdd:
		return OperationAdd
	case OpRemove:
		return OperationDelete
	default:
		return OperationUpdate
	}
}

func summarizeEntityType(changes []PatchOp) EntityKind {
	kind := changes[0].Type
	for _, c := range changes[1:] {
		if c.Type != kind {
			return EntityMixed
		}
	}
	return kind
}
