package history

import "mindmesh-backend/domain/graph"

// nodeKeeps and edgeKeeps are the fields required to reconstruct an entity.
// Everything else on the canvas object is derived or ephemeral and is dropped
// when an entity is stored in an add operation or a snapshot.
var (
	nodeKeeps         = []string{"id", "type", "position", "data"}
	nodeKeepsOptional = []string{"parentId"}
	edgeKeeps         = []string{"id", "source", "target", "type", "data"}
	edgeKeepsOptional = []string{"label"}
)

// MinimizeNode reduces a node to its reconstructible fields. Width and height
// are taken from the top level when present, falling back to the canvas's
// measured dimensions.
func MinimizeNode(node graph.Entity) graph.Entity {
	out := keep(node, nodeKeeps, nodeKeepsOptional)

	width, height := node["width"], node["height"]
	if measured, ok := asMap(node["measured"]); ok {
		if width == nil {
			width = measured["width"]
		}
		if height == nil {
			height = measured["height"]
		}
	}
	if width != nil {
		out["width"] = graph.CloneValue(width)
	}
	if height != nil {
		out["height"] = graph.CloneValue(height)
	}
	return out
}

// MinimizeEdge reduces an edge to its reconstructible fields.
func MinimizeEdge(edge graph.Entity) graph.Entity {
	return keep(edge, edgeKeeps, edgeKeepsOptional)
}

// CompressState minimizes every entity of a state in one pass. The result is
// the payload stored for a snapshot.
func CompressState(state graph.State) graph.State {
	out := graph.State{
		Nodes: make([]graph.Entity, len(state.Nodes)),
		Edges: make([]graph.Entity, len(state.Edges)),
	}
	for i, n := range state.Nodes {
		out.Nodes[i] = MinimizeNode(n)
	}
	for i, e := range state.Edges {
		out.Edges[i] = MinimizeEdge(e)
	}
	return out
}

func keep(entity graph.Entity, always, whenPresent []string) graph.Entity {
	out := make(graph.Entity, len(always)+len(whenPresent))
	for _, k := range always {
		if v, in := entity[k]; in {
			out[k] = graph.CloneValue(v)
		}
	}
	for _, k := range whenPresent {
		if v, in := entity[k]; in && v != nil {
			out[k] = graph.CloneValue(v)
		}
	}
	return out
}
