package stratum

import "github.com/dshills/stratum/tree"

// VisitFunc is called once per module during a walk. scoped is the
// configuration block for the module and may be mutated in place; name is
// the qualified dotted path ending in the module's own name.
type VisitFunc func(scoped tree.Map, module Configurable, name string) error

// Walk traverses a module forest depth-first in declaration order,
// invoking visit at each module before descending into its children.
//
// When requireExisting is true every block must already be present in
// cfg: a missing block is a *ProgrammerError and a block that is not a
// mapping is a *ConfigurationError. When false every block must be
// absent — duplicate sibling names are a *ProgrammerError — and is
// initialized to an empty mapping before the visit, so a visitor that
// injects keys its children expect runs before they are reached.
//
// cfg is mutated in place and returned. The first error aborts the walk.
func Walk(cfg tree.Map, modules []Configurable, visit VisitFunc, prefix string, requireExisting bool) (tree.Map, error) {
	for _, module := range modules {
		name := module.ConfigName()
		if name == "" {
			return nil, Programmerf("%T must provide a config name", module)
		}
		qualified := prefix + name

		if requireExisting {
			val, ok := cfg[name]
			if !ok {
				return nil, Programmerf("%s not present in configuration", qualified)
			}
			if _, isMap := val.(tree.Map); !isMap {
				return nil, NewConfigurationError(qualified, "must be an object configuration")
			}
		} else {
			if _, ok := cfg[name]; ok {
				return nil, Programmerf("multiple modules providing %s", qualified)
			}
			cfg[name] = tree.Map{}
		}

		scoped := cfg[name].(tree.Map)
		if err := visit(scoped, module, qualified); err != nil {
			return nil, err
		}

		if _, err := Walk(scoped, module.SubModules(), visit, qualified+".", requireExisting); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
