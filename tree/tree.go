// Package tree provides the nested-map configuration tree used throughout
// stratum.
//
// A configuration tree is a plain map[string]any whose values are either
// nested map[string]any mappings, []any sequences, or scalars. This mirrors
// what the yaml, toml, and json decoders produce, and type switches over
// the three cases give the merge and walk algorithms exhaustive case
// analysis without a wrapper type.
package tree

// Map is a configuration mapping: string keys to nested maps, slices,
// or scalar values.
type Map = map[string]any

// Clone creates a deep copy of a map.
func Clone(src Map) Map {
	if src == nil {
		return nil
	}

	dst := make(Map, len(src))
	for key, val := range src {
		dst[key] = CloneValue(val)
	}

	return dst
}

// CloneValue creates a deep copy of a value.
func CloneValue(val any) any {
	switch v := val.(type) {
	case Map:
		return Clone(v)
	case []any:
		return cloneSlice(v)
	default:
		return val
	}
}

// cloneSlice creates a deep copy of a slice.
func cloneSlice(src []any) []any {
	if src == nil {
		return nil
	}

	dst := make([]any, len(src))
	for i, val := range src {
		dst[i] = CloneValue(val)
	}

	return dst
}

// Equal compares two values structurally.
// Maps and slices are compared element-wise; scalars with ==.
func Equal(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	switch va := a.(type) {
	case Map:
		vb, ok := b.(Map)
		if !ok {
			return false
		}
		return mapsEqual(va, vb)
	case []any:
		vb, ok := b.([]any)
		if !ok {
			return false
		}
		return slicesEqual(va, vb)
	default:
		return a == b
	}
}

func mapsEqual(a, b Map) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || !Equal(va, vb) {
			return false
		}
	}
	return true
}

func slicesEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
