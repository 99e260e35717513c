package graph

// Entity is a single node or edge as stored and shipped over the wire: a
// decoded JSON record with a required unique "id". Beyond the id, the shape is
// owned by the canvas layer; this package treats everything else as an opaque
// value tree of map[string]any, []any and JSON scalars.
type Entity map[string]any

// ID returns the entity's identifier, or "" when absent or not a string.
func (e Entity) ID() string {
	id, _ := e["id"].(string)
	return id
}

// Clone returns a deep copy of the entity.
func (e Entity) Clone() Entity {
	if e == nil {
		return nil
	}
	return Entity(CloneValue(map[string]any(e)).(map[string]any))
}

// State is a full graph at a point in time: the two entity collections a map
// is made of. Ids are unique within each collection; cross-references between
// the collections are not validated here.
type State struct {
	Nodes []Entity `json:"nodes"`
	Edges []Entity `json:"edges"`
}

// Clone returns a State with fresh slices and deep-copied entities.
func (s State) Clone() State {
	out := State{
		Nodes: make([]Entity, len(s.Nodes)),
		Edges: make([]Entity, len(s.Edges)),
	}
	for i, n := range s.Nodes {
		out.Nodes[i] = n.Clone()
	}
	for i, e := range s.Edges {
		out.Edges[i] = e.Clone()
	}
	return out
}

// CloneValue deep-copies a JSON value tree. Scalars are returned as-is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = CloneValue(val)
		}
		return out
	case Entity:
		return CloneValue(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = CloneValue(val)
		}
		return out
	default:
		return v
	}
}
