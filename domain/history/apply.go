package history

import "mindmesh-backend/domain/graph"

// ApplyDelta replays a delta onto a base state and returns the resulting
// state. The base's top-level slices are never mutated; entities touched by a
// change are replaced with patched copies. A nil delta returns a shallow copy
// of the base.
//
// Ops referencing ids absent from the base are silent no-ops: deltas may
// legitimately lag behind concurrent deletions upstream.
func ApplyDelta(base graph.State, delta *Delta) graph.State {
	out := graph.State{
		Nodes: append([]graph.Entity(nil), base.Nodes...),
		Edges: append([]graph.Entity(nil), base.Edges...),
	}
	if delta == nil {
		return out
	}

	for _, change := range delta.Changes {
		switch change.Type {
		case EntityEdge:
			out.Edges = applyOp(out.Edges, change)
		default:
			out.Nodes = applyOp(out.Nodes, change)
		}
	}
	return out
}

func applyOp(entities []graph.Entity, change PatchOp) []graph.Entity {
	switch change.Op {
	case OpRemove:
		kept := make([]graph.Entity, 0, len(entities))
		for _, e := range entities {
			if e.ID() != change.ID {
				kept = append(kept, e)
			}
		}
		return kept

	case OpAdd:
		for i, e := range entities {
			if e.ID() == change.ID {
				// The id already exists: merge the incoming fields onto the
				// existing entity instead of duplicating it.
				merged := e.Clone()
				for k, v := range change.Value {
					merged[k] = graph.CloneValue(v)
				}
				entities[i] = merged
				return entities
			}
		}
		added := change.Value.Clone()
		if added == nil {
			added = graph.Entity{}
		}
		added["id"] = change.ID
		return append(entities, added)

	case OpPatch:
		for i, e := range entities {
			if e.ID() == change.ID {
				entities[i] = ApplyPatch(e, change.Patch)
				return entities
			}
		}
		return entities

	default:
		return entities
	}
}
