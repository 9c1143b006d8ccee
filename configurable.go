// Package stratum assembles hierarchical configuration for an application.
//
// An application declares a forest of Configurable modules, each naming
// its configuration block, its default values, its children, and an
// optional consistency check. Assemble builds the default tree from the
// forest, overlays a parsed document on top of it, fills in runtime
// argument overrides, and validates the result. The assembled tree is a
// plain nested map (see the tree package) and is typically published to a
// store.Store for process-wide lookup.
//
// Precedence, lowest to highest: module defaults, document values,
// runtime arguments.
package stratum

import (
	"github.com/spf13/pflag"

	"github.com/dshills/stratum/tree"
)

// Configurable describes one configuration block.
//
// Only ConfigName is meaningful on its own; everything else may return
// zero values. Embed Base to get no-op implementations of the optional
// methods.
type Configurable interface {
	// ConfigName returns the name of this configuration block.
	// It must be non-empty and unique among siblings under one parent.
	ConfigName() string

	// DefaultConfig returns the default values for this block.
	// It should not include configured sub-blocks; children declare
	// their own defaults. May return nil.
	DefaultConfig() tree.Map

	// SubModules returns the modules configured under this block,
	// in declaration order. May return nil.
	SubModules() []Configurable

	// AddFlags declares command-line flags for this block on fs.
	AddFlags(fs *pflag.FlagSet)

	// RuntimeKeys maps runtime argument names to configuration keys
	// inside this block. Arguments present in the argument source
	// overwrite the corresponding key. May return nil.
	RuntimeKeys() map[string]string

	// CheckConfig validates this block's configuration. name is the
	// qualified dotted path ending in ConfigName. Return a
	// *ConfigurationError describing the first problem found.
	CheckConfig(cfg tree.Map, name string) error
}

// Base provides no-op implementations of every optional Configurable
// method. Embed it and override what you need.
type Base struct{}

// DefaultConfig returns nil.
func (Base) DefaultConfig() tree.Map { return nil }

// SubModules returns nil.
func (Base) SubModules() []Configurable { return nil }

// AddFlags declares nothing.
func (Base) AddFlags(*pflag.FlagSet) {}

// RuntimeKeys returns nil.
func (Base) RuntimeKeys() map[string]string { return nil }

// CheckConfig accepts any configuration.
func (Base) CheckConfig(tree.Map, string) error { return nil }

// Decl is a Configurable built from explicit fields, for modules that
// need no behavior beyond declaration. It replaces discovery-style
// registration: everything a block contributes is stated up front.
type Decl struct {
	// Name is the block name (required).
	Name string

	// Defaults holds the block's default values.
	Defaults tree.Map

	// Subs holds child modules in declaration order.
	Subs []Configurable

	// Keys maps runtime argument names to configuration keys.
	Keys map[string]string

	// Flags, if non-nil, declares command-line flags for the block.
	Flags func(fs *pflag.FlagSet)

	// Check, if non-nil, validates the block's configuration.
	Check func(cfg tree.Map, name string) error
}

// ConfigName returns the declared block name.
func (d Decl) ConfigName() string { return d.Name }

// DefaultConfig returns the declared defaults.
func (d Decl) DefaultConfig() tree.Map { return d.Defaults }

// SubModules returns the declared children.
func (d Decl) SubModules() []Configurable { return d.Subs }

// AddFlags invokes the declared flag hook, if any.
func (d Decl) AddFlags(fs *pflag.FlagSet) {
	if d.Flags != nil {
		d.Flags(fs)
	}
}

// RuntimeKeys returns the declared argument mapping.
func (d Decl) RuntimeKeys() map[string]string { return d.Keys }

// CheckConfig invokes the declared check hook, if any.
func (d Decl) CheckConfig(cfg tree.Map, name string) error {
	if d.Check != nil {
		return d.Check(cfg, name)
	}
	return nil
}

// Proxy passes every Configurable call through to an inner module.
// It is a base for wrappers that override a single aspect.
type Proxy struct {
	Inner Configurable
}

// ConfigName returns the inner module's name.
func (p Proxy) ConfigName() string { return p.Inner.ConfigName() }

// DefaultConfig returns the inner module's defaults.
func (p Proxy) DefaultConfig() tree.Map { return p.Inner.DefaultConfig() }

// SubModules returns the inner module's children.
func (p Proxy) SubModules() []Configurable { return p.Inner.SubModules() }

// AddFlags declares the inner module's flags.
func (p Proxy) AddFlags(fs *pflag.FlagSet) { p.Inner.AddFlags(fs) }

// RuntimeKeys returns the inner module's argument mapping.
func (p Proxy) RuntimeKeys() map[string]string { return p.Inner.RuntimeKeys() }

// CheckConfig runs the inner module's check.
func (p Proxy) CheckConfig(cfg tree.Map, name string) error {
	return p.Inner.CheckConfig(cfg, name)
}

// subModulesProxy overrides only the child list of a module.
type subModulesProxy struct {
	Proxy
	subs []Configurable
}

func (p subModulesProxy) SubModules() []Configurable { return p.subs }

// WithSubModules returns a Configurable identical to inner except that
// its children are replaced by subs.
func WithSubModules(inner Configurable, subs ...Configurable) Configurable {
	return subModulesProxy{Proxy: Proxy{Inner: inner}, subs: subs}
}

// CheckSubconfig validates one child block from inside a parent's
// CheckConfig. cfg is the parent's configuration and name the parent's
// qualified path. The child's block is created empty if absent.
func CheckSubconfig(cfg tree.Map, name string, sub Configurable) error {
	subName := sub.ConfigName()
	val, ok := cfg[subName]
	if !ok || val == nil {
		val = tree.Map{}
		cfg[subName] = val
	}
	subCfg, ok := val.(tree.Map)
	if !ok {
		return Programmerf("configuration for %s in %s must be a mapping", subName, name)
	}
	return sub.CheckConfig(subCfg, name+"."+subName)
}
