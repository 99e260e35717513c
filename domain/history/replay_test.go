package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindmesh-backend/domain/graph"
)

func snapshotState() graph.State {
	return graph.State{
		Nodes: []graph.Entity{{"id": "n1", "type": "idea", "data": map[string]any{"content": "start"}}},
	}
}

func addNodeEvent(id string, index int, nodeID string) Event {
	return Event{
		ID:         id,
		EventIndex: index,
		Delta: &Delta{
			Operation:  OperationAdd,
			EntityType: EntityNode,
			Changes: []PatchOp{{
				ID:    nodeID,
				Type:  EntityNode,
				Op:    OpAdd,
				Value: graph.Entity{"type": "idea", "data": map[string]any{"content": "added"}},
			}},
		},
	}
}

func patchNodeEvent(id string, index int, nodeID, content string) Event {
	return Event{
		ID:         id,
		EventIndex: index,
		Delta: &Delta{
			Operation:  OperationUpdate,
			EntityType: EntityNode,
			Changes: []PatchOp{{
				ID:    nodeID,
				Type:  EntityNode,
				Op:    OpPatch,
				Patch: Patch{"data.content": content},
			}},
		},
	}
}

func TestReplayNoTargetReturnsSnapshotState(t *testing.T) {
	events := []Event{patchNodeEvent("ev1", 0, "n1", "changed")}

	got, found := Replay(snapshotState(), events, "")

	assert.True(t, found)
	assert.Equal(t, "start", got.Nodes[0]["data"].(map[string]any)["content"])
}

func TestReplayStopsBeforeTargetEvent(t *testing.T) {
	events := []Event{
		patchNodeEvent("ev1", 0, "n1", "after-ev1"),
		patchNodeEvent("ev2", 1, "n1", "after-ev2"),
		patchNodeEvent("ev3", 2, "n1", "after-ev3"),
	}

	got, found := Replay(snapshotState(), events, "ev2")

	assert.True(t, found)
	// ev1 applied, ev2 and ev3 not: the state is "as of just before ev2".
	assert.Equal(t, "after-ev1", got.Nodes[0]["data"].(map[string]any)["content"])
}

func TestReplayTargetFirstEventReturnsSnapshotState(t *testing.T) {
	events := []Event{
		patchNodeEvent("ev1", 0, "n1", "after-ev1"),
		patchNodeEvent("ev2", 1, "n1", "after-ev2"),
	}

	got, found := Replay(snapshotState(), events, "ev1")

	assert.True(t, found)
	assert.Equal(t, "start", got.Nodes[0]["data"].(map[string]any)["content"])
}

func TestReplayUnmatchedTargetAppliesAllAndReportsIt(t *testing.T) {
	events := []Event{
		patchNodeEvent("ev1", 0, "n1", "after-ev1"),
		patchNodeEvent("ev2", 1, "n1", "after-ev2"),
	}

	got, found := Replay(snapshotState(), events, "missing")

	assert.False(t, found)
	assert.Equal(t, "after-ev2", got.Nodes[0]["data"].(map[string]any)["content"])
}

func TestReplayEnforcesEventIndexOrder(t *testing.T) {
	// ev2 patches a node that only exists because ev1 added it. The events
	// arrive swapped; replay must still apply them by EventIndex.
	ev1 := addNodeEvent("ev1", 0, "n2")
	ev2 := patchNodeEvent("ev2", 1, "n2", "patched")

	got, found := Replay(snapshotState(), []Event{ev2, ev1}, "")
	assert.True(t, found)

	got, _ = Replay(snapshotState(), []Event{ev2, ev1}, "missing")
	require.Len(t, got.Nodes, 2)
	var n2 graph.Entity
	for _, n := range got.Nodes {
		if n.ID() == "n2" {
			n2 = n
		}
	}
	require.NotNil(t, n2)
	assert.Equal(t, "patched", n2["data"].(map[string]any)["content"])
}

func TestReplayOutOfOrderApplicationLosesPatch(t *testing.T) {
	// Demonstrates why ascending order matters: applying the patch before the
	// add leaves the patched path unset, because patches on absent ids are
	// dropped.
	base := snapshotState()

	ev1 := addNodeEvent("ev1", 0, "n2")
	ev2 := patchNodeEvent("ev2", 1, "n2", "patched")

	state := ApplyDelta(base, ev2.Delta) // patch first: silent no-op
	state = ApplyDelta(state, ev1.Delta) // then the add

	require.Len(t, state.Nodes, 2)
	for _, n := range state.Nodes {
		if n.ID() == "n2" {
			assert.Equal(t, "added", n["data"].(map[string]any)["content"])
		}
	}
}

func TestReplayDoesNotMutateSnapshotState(t *testing.T) {
	state := snapshotState()
	events := []Event{patchNodeEvent("ev1", 0, "n1", "changed")}

	_, _ = Replay(state, events, "missing")

	assert.Equal(t, "start", state.Nodes[0]["data"].(map[string]any)["content"])
}
