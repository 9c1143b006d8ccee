package stratum

import "github.com/dshills/stratum/tree"

// ArgSource is a runtime argument lookup: command-line values, test
// parameters, or any other key to value mapping.
type ArgSource interface {
	// Get returns the value for a runtime argument name.
	// Returns nil, false (or a nil value) for unset arguments.
	Get(key string) (any, bool)
}

// MapSource adapts a plain map to an ArgSource.
type MapSource map[string]any

// Get returns the value for key.
func (m MapSource) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// AssembleDefaults builds the all-defaults tree for a module forest.
// Each module's DefaultConfig is shallow-copied into its block; nesting
// inside a DefaultConfig map is passed through opaquely, children being
// the only recursion mechanism.
func AssembleDefaults(modules []Configurable) (tree.Map, error) {
	return Walk(tree.Map{}, modules, func(scoped tree.Map, module Configurable, name string) error {
		for k, v := range module.DefaultConfig() {
			scoped[k] = v
		}
		return nil
	}, "", false)
}

// FillArgs applies runtime arguments onto an already-assembled tree.
// For each module, every runtime key found non-nil in src overwrites the
// mapped configuration key in the module's block. cfg is mutated in
// place and returned.
func FillArgs(cfg tree.Map, modules []Configurable, src ArgSource) (tree.Map, error) {
	if src == nil {
		src = MapSource(nil)
	}
	return Walk(cfg, modules, func(scoped tree.Map, module Configurable, name string) error {
		for argName, key := range module.RuntimeKeys() {
			if v, ok := src.Get(argName); ok && v != nil {
				scoped[key] = v
			}
		}
		return nil
	}, "", true)
}

// Validate runs every module's CheckConfig over an assembled tree,
// failing fast on the first error.
func Validate(cfg tree.Map, modules []Configurable) error {
	_, err := Walk(cfg, modules, func(scoped tree.Map, module Configurable, name string) error {
		return module.CheckConfig(scoped, name)
	}, "", true)
	return err
}

// Assemble runs the whole pipeline: build defaults from the module
// forest, overlay doc on top, fill in runtime arguments from src, and
// validate. doc and src may be nil. Returns the assembled tree.
func Assemble(modules []Configurable, doc tree.Map, src ArgSource) (tree.Map, error) {
	cfg, err := AssembleDefaults(modules)
	if err != nil {
		return nil, err
	}

	if doc != nil {
		cfg = tree.OverlayMap(cfg, doc)
	}

	if cfg, err = FillArgs(cfg, modules, src); err != nil {
		return nil, err
	}

	if err := Validate(cfg, modules); err != nil {
		return nil, err
	}

	return cfg, nil
}
