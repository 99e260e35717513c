package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindmesh-backend/domain/graph"
)

func TestMinimizeNodeKeepsReconstructibleFields(t *testing.T) {
	node := graph.Entity{
		"id":       "n1",
		"type":     "idea",
		"position": map[string]any{"x": 1.0, "y": 2.0},
		"data":     map[string]any{"content": "A"},
		"selected": true,
		"dragging": false,
		"zIndex":   7.0,
	}

	got := MinimizeNode(node)

	assert.Equal(t, graph.Entity{
		"id":       "n1",
		"type":     "idea",
		"position": map[string]any{"x": 1.0, "y": 2.0},
		"data":     map[string]any{"content": "A"},
	}, got)
}

func TestMinimizeNodeTakesDimensionsFromMeasured(t *testing.T) {
	node := graph.Entity{
		"id":       "n1",
		"type":     "idea",
		"position": map[string]any{"x": 0.0, "y": 0.0},
		"data":     map[string]any{},
		"measured": map[string]any{"width": 320.0, "height": 140.0},
	}

	got := MinimizeNode(node)

	assert.Equal(t, 320.0, got["width"])
	assert.Equal(t, 140.0, got["height"])
	assert.NotContains(t, got, "measured")
}

func TestMinimizeNodePrefersTopLevelDimensions(t *testing.T) {
	node := graph.Entity{
		"id":       "n1",
		"width":    100.0,
		"height":   50.0,
		"measured": map[string]any{"width": 320.0, "height": 140.0},
	}

	got := MinimizeNode(node)

	assert.Equal(t, 100.0, got["width"])
	assert.Equal(t, 50.0, got["height"])
}

func TestMinimizeNodeKeepsParentIDOnlyWhenPresent(t *testing.T) {
	withParent := graph.Entity{"id": "n1", "parentId": "n0"}
	without := graph.Entity{"id": "n2"}

	assert.Equal(t, "n0", MinimizeNode(withParent)["parentId"])
	assert.NotContains(t, MinimizeNode(without), "parentId")
}

func TestMinimizeEdge(t *testing.T) {
	edge := graph.Entity{
		"id":       "e1",
		"source":   "n1",
		"target":   "n2",
		"type":     "smooth",
		"data":     map[string]any{"weight": 0.5},
		"label":    "relates to",
		"selected": true,
		"animated": true,
	}

	got := MinimizeEdge(edge)

	assert.Equal(t, graph.Entity{
		"id":     "e1",
		"source": "n1",
		"target": "n2",
		"type":   "smooth",
		"data":   map[string]any{"weight": 0.5},
		"label":  "relates to",
	}, got)
}

func TestCompressState(t *testing.T) {
	state := graph.State{
		Nodes: []graph.Entity{{"id": "n1", "type": "idea", "selected": true}},
		Edges: []graph.Entity{{"id": "e1", "source": "n1", "target": "n2", "dragging": true}},
	}

	got := CompressState(state)

	require.Len(t, got.Nodes, 1)
	require.Len(t, got.Edges, 1)
	assert.NotContains(t, got.Nodes[0], "selected")
	assert.NotContains(t, got.Edges[0], "dragging")
}

func TestMinimizeDoesNotAliasSource(t *testing.T) {
	node := graph.Entity{"id": "n1", "data": map[string]any{"content": "A"}}

	got := MinimizeNode(node)
	got["data"].(map[string]any)["content"] = "mutated"

	assert.Equal(t, "A", node["data"].(map[string]any)["content"])
}
