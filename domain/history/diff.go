package history

import (
	"encoding/json"
	"reflect"
	"sort"
	"strconv"

	"mindmesh-backend/domain/graph"
)

// SkipKeys are transient canvas-only fields. They never appear in a computed
// patch and never influence equality: they describe view state, not content.
var SkipKeys = map[string]struct{}{
	"selected": {},
	"dragging": {},
	"measured": {},
}

// Deleted marks a path for removal inside a Patch. JSON has no way to say
// "unset this key" that is distinct from assigning null, so the wire encoding
// carries removed paths in a separate list and the normalization boundary
// converts them back to this sentinel.
var Deleted = deleted{}

type deleted struct{}

// Patch maps dotted paths to absolute new values. A Deleted value at a path
// means "remove this key or array index".
type Patch map[string]any

// Diff records the differences between a and b into out, keyed by dotted path
// rooted at base. Equal subtrees contribute nothing. When either side is a
// scalar, or the two sides are containers of different kinds, the whole value
// is replaced. Keys in SkipKeys are ignored at every depth.
func Diff(base string, a, b any, out Patch) {
	if equalValues(a, b) {
		return
	}

	am, aIsMap := asMap(a)
	bm, bIsMap := asMap(b)
	if aIsMap && bIsMap {
		for _, key := range unionKeys(am, bm) {
			if _, skip := SkipKeys[key]; skip {
				continue
			}
			path := key
			if base != "" {
				path = base + "." + key
			}
			av, inA := am[key]
			bv, inB := bm[key]
			switch {
			case !inB:
				out[path] = Deleted
			case !inA:
				out[path] = bv
			default:
				Diff(path, av, bv, out)
			}
		}
		return
	}

	as, aIsSlice := a.([]any)
	bs, bIsSlice := b.([]any)
	if aIsSlice && bIsSlice {
		for i := 0; i < len(as) || i < len(bs); i++ {
			path := strconv.Itoa(i)
			if base != "" {
				path = base + "." + path
			}
			switch {
			case i >= len(bs):
				out[path] = Deleted
			case i >= len(as):
				out[path] = bs[i]
			default:
				Diff(path, as[i], bs[i], out)
			}
		}
		return
	}

	// Scalar on either side, or container kind changed: whole-value replace.
	out[base] = b
}

// equalValues is structural equality over JSON value trees. It is independent
// of map iteration order and treats numeric types uniformly, so a state that
// round-tripped through encoding/json compares equal to the original.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if am, ok := asMap(a); ok {
		bm, ok := asMap(b)
		if !ok || len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, in := bm[k]
			if !in || !equalValues(av, bv) {
				return false
			}
		}
		return true
	}

	if as, ok := a.([]any); ok {
		bs, ok := b.([]any)
		if !ok || len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !equalValues(as[i], bs[i]) {
				return false
			}
		}
		return true
	}

	if af, ok := asNumber(a); ok {
		bf, bok := asNumber(b)
		return bok && af == bf
	}

	return reflect.DeepEqual(a, b)
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case graph.Entity:
		return map[string]any(t), true
	default:
		return nil, false
	}
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func unionKeys(a, b map[string]any) []string {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, in := a[k]; !in {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
