package stratum

import (
	"github.com/spf13/pflag"

	"github.com/dshills/stratum/tree"
)

// DocumentLoader loads a parsed configuration document from a path.
// The loader package provides YAML, TOML, and JSON implementations.
type DocumentLoader interface {
	LoadFrom(path string) (tree.Map, error)
}

// FlagSource adapts a parsed pflag.FlagSet to an ArgSource. Only flags
// the user actually set are reported; flag defaults never override
// document values.
type FlagSource struct {
	fs *pflag.FlagSet
}

// NewFlagSource wraps a parsed flag set.
func NewFlagSource(fs *pflag.FlagSet) FlagSource {
	return FlagSource{fs: fs}
}

// Get returns the value of the named flag if the user set it.
func (s FlagSource) Get(key string) (any, bool) {
	if s.fs == nil {
		return nil, false
	}
	f := s.fs.Lookup(key)
	if f == nil || !f.Changed {
		return nil, false
	}
	return flagValue(s.fs, f), true
}

// flagValue extracts a flag's value with its native type where possible.
func flagValue(fs *pflag.FlagSet, f *pflag.Flag) any {
	switch f.Value.Type() {
	case "bool":
		v, err := fs.GetBool(f.Name)
		if err == nil {
			return v
		}
	case "int":
		v, err := fs.GetInt(f.Name)
		if err == nil {
			return v
		}
	case "int64":
		v, err := fs.GetInt64(f.Name)
		if err == nil {
			return v
		}
	case "float64":
		v, err := fs.GetFloat64(f.Name)
		if err == nil {
			return v
		}
	case "duration":
		v, err := fs.GetDuration(f.Name)
		if err == nil {
			return v
		}
	case "stringSlice":
		v, err := fs.GetStringSlice(f.Name)
		if err == nil {
			return v
		}
	}
	return f.Value.String()
}

// SelfName is the block name stratum reserves for its own settings.
const SelfName = "stratum"

// Self is the library's own Configurable. It declares the --config flag
// and records the chosen path under the "stratum" block. ParseArgs
// includes it automatically when the forest doesn't already carry a
// block by that name.
var Self Configurable = Decl{
	Name: SelfName,
	Flags: func(fs *pflag.FlagSet) {
		fs.StringP("config", "c", "", "read configuration from FILE")
	},
	Keys: map[string]string{"config": "config"},
}

// DeclareFlags calls AddFlags on every module in the forest, walking the
// same order assembly will use so that name collisions surface before
// parsing. The scratch tree built during the walk is discarded.
func DeclareFlags(fs *pflag.FlagSet, modules []Configurable) error {
	_, err := Walk(tree.Map{}, modules, func(scoped tree.Map, module Configurable, name string) error {
		module.AddFlags(fs)
		return nil
	}, "", false)
	return err
}

// ParseArgs drives a command-line assembly: it declares every module's
// flags on fs, parses argv, loads the document named by --config (if
// any) through docs, and assembles and validates the configuration with
// the parsed flags as the runtime argument source.
//
// The caller owns publishing the returned tree to a store, and owns
// turning a *ConfigurationError into a usage error.
func ParseArgs(fs *pflag.FlagSet, modules []Configurable, argv []string, docs DocumentLoader) (tree.Map, ArgSource, error) {
	modules = withSelf(modules)

	if err := DeclareFlags(fs, modules); err != nil {
		return nil, nil, err
	}
	if err := fs.Parse(argv); err != nil {
		return nil, nil, err
	}
	src := NewFlagSource(fs)

	var doc tree.Map
	if path, _ := fs.GetString("config"); path != "" {
		if docs == nil {
			return nil, nil, Programmerf("--config %s given but no document loader supplied", path)
		}
		loaded, err := docs.LoadFrom(path)
		if err != nil {
			return nil, nil, err
		}
		doc = loaded
	}

	cfg, err := Assemble(modules, doc, src)
	if err != nil {
		return nil, nil, err
	}
	return cfg, src, nil
}

// withSelf prepends Self unless the forest already has a stratum block.
func withSelf(modules []Configurable) []Configurable {
	for _, m := range modules {
		if m.ConfigName() == SelfName {
			return modules
		}
	}
	out := make([]Configurable, 0, len(modules)+1)
	out = append(out, Self)
	return append(out, modules...)
}
