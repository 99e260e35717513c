package history

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindmesh-backend/domain/graph"
)

func TestParseDeltaFullShape(t *testing.T) {
	payload := []byte(`{
		"operation": "update",
		"entityType": "node",
		"changes": [{"id": "n1", "type": "node", "op": "patch", "patch": {"data.content": "B"}}]
	}`)

	delta, err := ParseDelta(payload)

	require.NoError(t, err)
	assert.Equal(t, OperationUpdate, delta.Operation)
	assert.Equal(t, EntityNode, delta.EntityType)
	require.Len(t, delta.Changes, 1)
	assert.Equal(t, Patch{"data.content": "B"}, delta.Changes[0].Patch)
}

func TestParseDeltaChangesOnlyObject(t *testing.T) {
	payload := []byte(`{"changes": [{"id": "e1", "type": "edge", "op": "remove"}]}`)

	delta, err := ParseDelta(payload)

	require.NoError(t, err)
	assert.Equal(t, OperationDelete, delta.Operation)
	assert.Equal(t, EntityEdge, delta.EntityType)
}

func TestParseDeltaBareArray(t *testing.T) {
	payload := []byte(`[
		{"id": "n1", "type": "node", "op": "add", "value": {"id": "n1", "type": "idea"}},
		{"id": "e1", "type": "edge", "op": "remove"}
	]`)

	delta, err := ParseDelta(payload)

	require.NoError(t, err)
	assert.Equal(t, OperationBatch, delta.Operation)
	assert.Equal(t, EntityMixed, delta.EntityType)
	assert.Len(t, delta.Changes, 2)
}

func TestParseDeltaLegacyRemove(t *testing.T) {
	payload := []byte(`{"id": "n1", "type": "node", "before": {"id": "n1", "data": {"content": "A"}}}`)

	delta, err := ParseDelta(payload)

	require.NoError(t, err)
	require.Len(t, delta.Changes, 1)
	assert.Equal(t, OpRemove, delta.Changes[0].Op)
	assert.Equal(t, OperationDelete, delta.Operation)
}

func TestParseDeltaLegacyAdd(t *testing.T) {
	payload := []byte(`{"id": "n1", "type": "node", "after": {"id": "n1", "data": {"content": "A"}}}`)

	delta, err := ParseDelta(payload)

	require.NoError(t, err)
	require.Len(t, delta.Changes, 1)
	assert.Equal(t, OpAdd, delta.Changes[0].Op)
	assert.Equal(t, "n1", delta.Changes[0].Value.ID())
}

func TestParseDeltaLegacyPatchFlattensAfter(t *testing.T) {
	payload := []byte(`{
		"id": "n1", "type": "node",
		"before": {"id": "n1", "data": {"content": "A"}},
		"after":  {"id": "n1", "position": {"x": 3, "y": 4}, "data": {"content": "B"}}
	}`)

	delta, err := ParseDelta(payload)

	require.NoError(t, err)
	require.Len(t, delta.Changes, 1)
	change := delta.Changes[0]
	assert.Equal(t, OpPatch, change.Op)
	assert.NotContains(t, change.Patch, "id")
	assert.Equal(t, "B", change.Patch["data.content"])
	assert.Equal(t, 3.0, change.Patch["position.x"])
}

func TestParseDeltaRejectsScalarPayload(t *testing.T) {
	_, err := ParseDelta([]byte(`"nonsense"`))
	assert.Error(t, err)
}

func TestPatchOpWireSeparatesRemovalsFromNulls(t *testing.T) {
	op := PatchOp{
		ID:    "n1",
		Type:  EntityNode,
		Op:    OpPatch,
		Patch: Patch{"data.note": Deleted, "data.flag": nil, "data.content": "B"},
	}

	encoded, err := json.Marshal(op)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(encoded, &wire))
	assert.Equal(t, []any{"data.note"}, wire["removed"])
	patch := wire["patch"].(map[string]any)
	assert.Contains(t, patch, "data.flag")
	assert.Nil(t, patch["data.flag"])
	assert.NotContains(t, patch, "data.note")

	var decoded PatchOp
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, Deleted, decoded.Patch["data.note"])
	assert.Nil(t, decoded.Patch["data.flag"])
	assert.Contains(t, decoded.Patch, "data.flag")
	assert.Equal(t, "B", decoded.Patch["data.content"])
}

func TestParsedDeltaApplies(t *testing.T) {
	base := graph.State{Nodes: []graph.Entity{{"id": "n1", "data": map[string]any{"content": "A", "note": "x"}}}}
	payload := []byte(`{
		"operation": "update",
		"entityType": "node",
		"changes": [{"id": "n1", "type": "node", "op": "patch", "patch": {"data.content": "B"}, "removed": ["data.note"]}]
	}`)

	delta, err := ParseDelta(payload)
	require.NoError(t, err)

	got := ApplyDelta(base, delta)
	data := got.Nodes[0]["data"].(map[string]any)
	assert.Equal(t, "B", data["content"])
	assert.NotContains(t, data, "note")
}

func TestNullAssignmentSurvivesWireRoundTrip(t *testing.T) {
	oldState := graph.State{Nodes: []graph.Entity{{"id": "n1", "data": map[string]any{"content": "A"}}}}
	newState := graph.State{Nodes: []graph.Entity{{"id": "n1", "data": map[string]any{"content": "A", "note": nil}}}}

	delta := CalculateDelta(oldState, newState)
	require.NotNil(t, delta)

	// Store and reload the delta the way the event log does.
	encoded, err := json.Marshal(delta)
	require.NoError(t, err)
	reloaded, err := ParseDelta(encoded)
	require.NoError(t, err)

	// The key was added with an explicit null value; after the wire round
	// trip it must still be set, not removed.
	applied := ApplyDelta(oldState, reloaded)
	data := applied.Nodes[0]["data"].(map[string]any)
	assert.Contains(t, data, "note")
	assert.Nil(t, data["note"])
	assert.Nil(t, CalculateDelta(applied, newState))
}

func TestRemovalSurvivesWireRoundTrip(t *testing.T) {
	oldState := graph.State{Nodes: []graph.Entity{{"id": "n1", "data": map[string]any{"content": "A", "note": "x"}}}}
	newState := graph.State{Nodes: []graph.Entity{{"id": "n1", "data": map[string]any{"content": "A"}}}}

	delta := CalculateDelta(oldState, newState)
	require.NotNil(t, delta)

	encoded, err := json.Marshal(delta)
	require.NoError(t, err)
	reloaded, err := ParseDelta(encoded)
	require.NoError(t, err)

	applied := ApplyDelta(oldState, reloaded)
	assert.NotContains(t, applied.Nodes[0]["data"].(map[string]any), "note")
	assert.Nil(t, CalculateDelta(applied, newState))
}
