package store

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/dshills/stratum/tree"
)

// TypeError reports a configuration value with an unexpected type.
type TypeError struct {
	Path     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// GetString returns the string value at path.
func (s *Store) GetString(path string) (string, error) {
	val, err := s.Get(path)
	if err != nil {
		return "", err
	}

	str, ok := val.(string)
	if !ok {
		return "", &TypeError{Path: path, Expected: "string", Actual: fmt.Sprintf("%T", val)}
	}
	return str, nil
}

// GetInt returns the integer value at path. Whole floats are accepted
// because the json decoder produces float64 for all numbers.
func (s *Store) GetInt(path string) (int, error) {
	val, err := s.Get(path)
	if err != nil {
		return 0, err
	}

	switch v := val.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	}
	return 0, &TypeError{Path: path, Expected: "integer", Actual: fmt.Sprintf("%T", val)}
}

// GetFloat returns the numeric value at path as a float64.
func (s *Store) GetFloat(path string) (float64, error) {
	val, err := s.Get(path)
	if err != nil {
		return 0, err
	}

	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, &TypeError{Path: path, Expected: "number", Actual: fmt.Sprintf("%T", val)}
}

// GetBool returns the boolean value at path.
func (s *Store) GetBool(path string) (bool, error) {
	val, err := s.Get(path)
	if err != nil {
		return false, err
	}

	b, ok := val.(bool)
	if !ok {
		return false, &TypeError{Path: path, Expected: "boolean", Actual: fmt.Sprintf("%T", val)}
	}
	return b, nil
}

// GetDuration returns the duration value at path. Strings are parsed
// with time.ParseDuration; integers are taken as nanoseconds.
func (s *Store) GetDuration(path string) (time.Duration, error) {
	val, err := s.Get(path)
	if err != nil {
		return 0, err
	}

	switch v := val.(type) {
	case time.Duration:
		return v, nil
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, &TypeError{Path: path, Expected: "duration", Actual: fmt.Sprintf("%q", v)}
		}
		return d, nil
	case int:
		return time.Duration(v), nil
	case int64:
		return time.Duration(v), nil
	}
	return 0, &TypeError{Path: path, Expected: "duration", Actual: fmt.Sprintf("%T", val)}
}

// GetMap returns the mapping at path.
func (s *Store) GetMap(path string) (tree.Map, error) {
	val, err := s.Get(path)
	if err != nil {
		return nil, err
	}

	m, ok := val.(tree.Map)
	if !ok {
		return nil, &TypeError{Path: path, Expected: "object", Actual: fmt.Sprintf("%T", val)}
	}
	return m, nil
}

// Unmarshal decodes the configuration under path into target, which
// must be a pointer. An empty path decodes the whole tree. Field names
// map via `config` struct tags, weakly typed (strings parse into
// numbers, durations, and so on).
func (s *Store) Unmarshal(path string, target any) error {
	var val any
	var err error
	if path == "" {
		val, err = s.Get()
	} else {
		val, err = s.Get(path)
	}
	if err != nil {
		return err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "config",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("building decoder for %s: %w", path, err)
	}

	if err := decoder.Decode(val); err != nil {
		return fmt.Errorf("decoding configuration at %q: %w", path, err)
	}
	return nil
}
