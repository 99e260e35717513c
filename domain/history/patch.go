package history

import (
	"sort"
	"strconv"
	"strings"

	"mindmesh-backend/domain/graph"
)

// ApplyPatch applies a dotted-path patch to an entity and returns the patched
// copy. The entity is deep-cloned before any mutation, so subtrees shared with
// the caller's original are never written through. Patches are absolute
// assignments: applying the same patch twice yields the same result as once.
//
// Assignments run first in ascending path order (a replaced container is
// written before any assignment into it), then deletions in descending order
// so that a trailing run of deleted array indices truncates the array fully.
func ApplyPatch(entity graph.Entity, patch Patch) graph.Entity {
	out := entity.Clone()
	if out == nil {
		out = graph.Entity{}
	}

	var sets, dels []string
	for p, v := range patch {
		if _, del := v.(deleted); del {
			dels = append(dels, p)
		} else {
			sets = append(sets, p)
		}
	}
	sort.Slice(sets, func(i, j int) bool { return pathLess(sets[i], sets[j]) })
	sort.Slice(dels, func(i, j int) bool { return pathLess(dels[j], dels[i]) })

	for _, p := range sets {
		setByPath(map[string]any(out), strings.Split(p, "."), patch[p])
	}
	for _, p := range dels {
		setByPath(map[string]any(out), strings.Split(p, "."), Deleted)
	}
	return out
}

// pathLess orders dotted paths segment-wise, comparing numeric segments as
// numbers so "tags.2" sorts before "tags.10".
func pathLess(a, b string) bool {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] == bs[i] {
			continue
		}
		ai, aNum := asIndex(as[i])
		bi, bNum := asIndex(bs[i])
		if aNum && bNum {
			return ai < bi
		}
		return as[i] < bs[i]
	}
	return len(as) < len(bs)
}

// setByPath walks container down the path segments, then assigns or deletes
// at the terminal segment. An existing object is always walked as an object,
// even when the next segment is a numeric string: objects may legitimately
// carry numeric keys. An array is materialized only when the child is missing
// (or not a container) and the next segment is numeric; otherwise a fresh
// object is.
func setByPath(container map[string]any, segs []string, value any) {
	key := segs[0]
	if len(segs) == 1 {
		if _, del := value.(deleted); del {
			delete(container, key)
		} else {
			container[key] = value
		}
		return
	}

	child := container[key]
	if obj, isMap := asMap(child); isMap {
		setByPath(obj, segs[1:], value)
		return
	}
	if idx, numeric := asIndex(segs[1]); numeric {
		arr, isArr := child.([]any)
		if !isArr {
			arr = nil
		}
		container[key] = setInSlice(arr, idx, segs[1:], value)
		return
	}

	obj := make(map[string]any)
	container[key] = obj
	setByPath(obj, segs[1:], value)
}

// setInSlice handles a numeric segment: grows the slice with nils as needed,
// then either terminates at the index or keeps walking. Deleting the final
// index truncates; deleting a mid-array index blanks it to nil so the
// positional correspondence of later indices is preserved.
func setInSlice(arr []any, idx int, segs []string, value any) []any {
	if len(segs) == 1 {
		if _, del := value.(deleted); del {
			switch {
			case idx >= len(arr):
				return arr
			case idx == len(arr)-1:
				return arr[:idx]
			default:
				arr[idx] = nil
				return arr
			}
		}
		for len(arr) <= idx {
			arr = append(arr, nil)
		}
		arr[idx] = value
		return arr
	}

	for len(arr) <= idx {
		arr = append(arr, nil)
	}

	if obj, isMap := asMap(arr[idx]); isMap {
		setByPath(obj, segs[1:], value)
		return arr
	}
	if nextIdx, numeric := asIndex(segs[1]); numeric {
		inner, isArr := arr[idx].([]any)
		if !isArr {
			inner = nil
		}
		arr[idx] = setInSlice(inner, nextIdx, segs[1:], value)
		return arr
	}

	obj := make(map[string]any)
	arr[idx] = obj
	setByPath(obj, segs[1:], value)
	return arr
}

func asIndex(seg string) (int, bool) {
	n, err := strconv.Atoi(seg)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
