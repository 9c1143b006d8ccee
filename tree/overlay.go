package tree

// Overlay merges over on top of base and returns a new value.
//
// The rules, applied by recursive case analysis:
//
//   - If either operand is not a mapping, the result is over verbatim.
//     A scalar or sequence in the overlay replaces a nested mapping
//     wholesale; sequences are never merged element-wise.
//   - Every key in base absent from over is copied into the result.
//   - A key in over with a nil value is omitted from the result: nil is
//     an explicit delete marker, not a stored null.
//   - A key present in both is merged recursively.
//   - A key only in over is inserted with over's value.
//
// Neither input is mutated; mappings in the result are freshly allocated.
func Overlay(base, over any) any {
	baseMap, ok := base.(Map)
	if !ok {
		return CloneValue(over)
	}
	overMap, ok := over.(Map)
	if !ok {
		return CloneValue(over)
	}

	result := make(Map)
	for key, val := range baseMap {
		if _, shadowed := overMap[key]; !shadowed {
			result[key] = CloneValue(val)
		}
	}
	for key, val := range overMap {
		if val == nil {
			continue
		}
		if baseVal, exists := baseMap[key]; exists {
			result[key] = Overlay(baseVal, val)
		} else {
			result[key] = CloneValue(val)
		}
	}

	return result
}

// OverlayMap merges two mappings and returns the merged mapping.
// It is Overlay restricted to map operands, for callers that know both
// sides are mappings.
func OverlayMap(base, over Map) Map {
	return Overlay(base, over).(Map)
}
