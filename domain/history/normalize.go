package history

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"mindmesh-backend/domain/graph"
)

// patchOpWire is the serialized form of a PatchOp. Deleted paths travel in
// the removed list, not inside the patch map, so an explicit null assignment
// ("set this key to null") stays distinguishable from a removal.
type patchOpWire struct {
	ID      string       `json:"id"`
	Type    EntityKind   `json:"type"`
	Op      OpKind       `json:"op"`
	Value   graph.Entity `json:"value,omitempty"`
	Patch   Patch        `json:"patch,omitempty"`
	Removed []string     `json:"removed,omitempty"`
}

// MarshalJSON splits the in-memory patch into plain assignments and the
// removed-path list.
func (op PatchOp) MarshalJSON() ([]byte, error) {
	w := patchOpWire{ID: op.ID, Type: op.Type, Op: op.Op, Value: op.Value}
	if len(op.Patch) > 0 {
		assigns := make(Patch)
		for path, v := range op.Patch {
			if _, del := v.(deleted); del {
				w.Removed = append(w.Removed, path)
			} else {
				assigns[path] = v
			}
		}
		sort.Strings(w.Removed)
		if len(assigns) > 0 {
			w.Patch = assigns
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON folds the removed-path list back into the patch map as
// Deleted sentinels. Null patch values decode as plain nils.
func (op *PatchOp) UnmarshalJSON(data []byte) error {
	var w patchOpWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	op.ID, op.Type, op.Op, op.Value = w.ID, w.Type, w.Op, w.Value
	op.Patch = nil
	if len(w.Patch) > 0 || len(w.Removed) > 0 {
		patch := make(Patch, len(w.Patch)+len(w.Removed))
		for path, v := range w.Patch {
			patch[path] = v
		}
		for _, path := range w.Removed {
			patch[path] = Deleted
		}
		op.Patch = patch
	}
	return nil
}

// legacyChange is the before/after shape older clients still send.
type legacyChange struct {
	ID     string       `json:"id"`
	Type   EntityKind   `json:"type"`
	Before graph.Entity `json:"before"`
	After  graph.Entity `json:"after"`
}

// ParseDelta decodes a delta from any of the wire shapes still in circulation:
// a full Delta object, an object carrying only a changes array, a bare array
// of ops, or the legacy single-entity before/after shape. Whatever arrives is
// normalized here, once, into the tagged-op form the rest of the engine
// consumes.
func ParseDelta(data []byte) (*Delta, error) {
	trimmed := firstByte(data)
	if trimmed == '[' {
		var changes []PatchOp
		if err := json.Unmarshal(data, &changes); err != nil {
			return nil, fmt.Errorf("decoding ops array: %w", err)
		}
		return deltaFromChanges(changes), nil
	}
	if trimmed != '{' {
		return nil, fmt.Errorf("delta payload must be an object or array")
	}

	var probe struct {
		Operation Operation       `json:"operation"`
		Changes   json.RawMessage `json:"changes"`
		Before    json.RawMessage `json:"before"`
		After     json.RawMessage `json:"after"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decoding delta: %w", err)
	}

	if len(probe.Changes) > 0 {
		var full Delta
		if err := json.Unmarshal(data, &full); err != nil {
			return nil, fmt.Errorf("decoding delta: %w", err)
		}
		if probe.Operation == "" {
			return deltaFromChanges(full.Changes), nil
		}
		return &full, nil
	}

	if len(probe.Before) > 0 || len(probe.After) > 0 {
		var legacy legacyChange
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("decoding legacy change: %w", err)
		}
		return deltaFromChanges([]PatchOp{normalizeLegacy(legacy)}), nil
	}

	return nil, fmt.Errorf("unrecognized delta shape")
}

// normalizeLegacy maps the before/after pair onto a tagged op: gone after
// means remove, new after means add, both present means a full-replacement
// patch flattened to dotted paths.
func normalizeLegacy(c legacyChange) PatchOp {
	op := PatchOp{ID: c.ID, Type: c.Type}
	switch {
	case c.Before != nil && c.After == nil:
		op.Op = OpRemove
	case c.Before == nil && c.After != nil:
		op.Op = OpAdd
		op.Value = c.After
	default:
		op.Op = OpPatch
		patch := make(Patch)
		flattenInto("", map[string]any(c.After), patch)
		delete(patch, "id")
		op.Patch = patch
	}
	return op
}

// deltaFromChanges rebuilds the summary fields from a bare changes list.
func deltaFromChanges(changes []PatchOp) *Delta {
	if len(changes) == 0 {
		return &Delta{Operation: OperationBatch, EntityType: EntityMixed}
	}
	return &Delta{
		Operation:  summarizeOperation(changes),
		EntityType: summarizeEntityType(changes),
		Changes:    changes,
	}
}

// flattenInto writes every leaf of a value tree into out as an absolute
// dotted-path assignment, mirroring the differ's addressing.
func flattenInto(base string, v any, out Patch) {
	if m, ok := asMap(v); ok && len(m) > 0 {
		for k, val := range m {
			if _, skip := SkipKeys[k]; skip {
				continue
			}
			path := k
			if base != "" {
				path = base + "." + k
			}
			flattenInto(path, val, out)
		}
		return
	}
	if s, ok := v.([]any); ok && len(s) > 0 {
		for i, val := range s {
			path := strconv.Itoa(i)
			if base != "" {
				path = base + "." + path
			}
			flattenInto(path, val, out)
		}
		return
	}
	if base != "" {
		out[base] = v
	}
}

func firstByte(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}
