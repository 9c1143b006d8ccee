package tree

import "strings"

// GetByPath retrieves a value from a nested map using a dot-separated path.
func GetByPath(data Map, path string) (any, bool) {
	if data == nil {
		return nil, false
	}

	parts := strings.Split(path, ".")
	current := any(data)

	for _, part := range parts {
		m, ok := current.(Map)
		if !ok {
			return nil, false
		}

		val, exists := m[part]
		if !exists {
			return nil, false
		}

		current = val
	}

	return current, true
}

// SetByPath sets a value in a nested map using a dot-separated path.
// Creates intermediate maps as needed.
func SetByPath(data Map, path string, value any) {
	if data == nil {
		return
	}

	parts := strings.Split(path, ".")
	current := data

	// Navigate/create intermediate maps
	for i := 0; i < len(parts)-1; i++ {
		part := parts[i]
		if next, ok := current[part].(Map); ok {
			current = next
		} else {
			next := make(Map)
			current[part] = next
			current = next
		}
	}

	current[parts[len(parts)-1]] = value
}

// DeleteByPath removes a value from a nested map using a dot-separated path.
// Returns true if the value was found and deleted.
func DeleteByPath(data Map, path string) bool {
	if data == nil {
		return false
	}

	parts := strings.Split(path, ".")
	current := data

	// Navigate to the parent of the target
	for i := 0; i < len(parts)-1; i++ {
		next, ok := current[parts[i]].(Map)
		if !ok {
			return false
		}
		current = next
	}

	key := parts[len(parts)-1]
	if _, exists := current[key]; exists {
		delete(current, key)
		return true
	}

	return false
}

// Flatten flattens a nested map into a single-level map with dot-separated keys.
func Flatten(data Map) Map {
	result := make(Map)
	flattenRecursive(data, "", result)
	return result
}

func flattenRecursive(data Map, prefix string, result Map) {
	for key, val := range data {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := val.(Map); ok {
			flattenRecursive(nested, fullKey, result)
		} else {
			result[fullKey] = val
		}
	}
}

// Unflatten converts a flattened map with dot-separated keys back to a
// nested structure.
func Unflatten(data Map) Map {
	result := make(Map)
	for path, val := range data {
		SetByPath(result, path, val)
	}
	return result
}

// Diff returns the paths that differ between two maps.
// Returns added, modified, and removed paths.
func Diff(old, new Map) (added, modified, removed []string) {
	oldFlat := Flatten(old)
	newFlat := Flatten(new)

	for path, newVal := range newFlat {
		if oldVal, exists := oldFlat[path]; exists {
			if !Equal(oldVal, newVal) {
				modified = append(modified, path)
			}
		} else {
			added = append(added, path)
		}
	}

	for path := range oldFlat {
		if _, exists := newFlat[path]; !exists {
			removed = append(removed, path)
		}
	}

	return added, modified, removed
}
