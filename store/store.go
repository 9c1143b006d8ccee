// Package store holds the published configuration for a process.
//
// A Store owns the currently active configuration tree, the runtime
// argument bindings it was assembled with, and a one-deep save slot for
// scoped overrides. Applications normally create one Store at their
// entry point and pass it to whatever needs configuration lookup; the
// package-level Default store exists for the common single-store case
// and for tools that assemble once at startup.
//
// The Store is mutex-guarded, but scoped overrides support only one
// outstanding save: configuration assembly is a startup activity, not
// something to run concurrently.
package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dshills/stratum"
	"github.com/dshills/stratum/notify"
	"github.com/dshills/stratum/tree"
)

// ErrNotConfigured is returned by Get when no configuration has been
// published yet.
var ErrNotConfigured = errors.New("global configuration not set")

// ErrKeyNotFound is wrapped by Get when a path segment is missing.
var ErrKeyNotFound = errors.New("configuration key not found")

// Store is a configuration holder with save/restore semantics.
type Store struct {
	mu sync.RWMutex

	cfg    tree.Map
	path   string // on-disk path the tree came from, if any
	args   stratum.ArgSource
	warned bool

	saved *snapshot

	notifier *notify.Notifier
	logger   *log.Logger
}

// snapshot captures the full holder state for a scoped override.
type snapshot struct {
	cfg    tree.Map
	path   string
	args   stratum.ArgSource
	warned bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for overwrite warnings.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithNotifier sets the notifier change events are delivered through.
func WithNotifier(n *notify.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// New creates an empty Store. Tests should create a fresh Store per
// test instead of resetting a shared one.
func New(opts ...Option) *Store {
	s := &Store{
		notifier: notify.New(),
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set publishes cfg as the active configuration.
//
// If the active tree was loaded from an on-disk path, replacing it
// without an explicit Clear is refused: silently switching configuration
// sources mid-process is a caller bug. Overwriting a non-empty tree that
// has no recorded path is allowed but warned about, once.
func (s *Store) Set(cfg tree.Map) error {
	return s.set(cfg, "")
}

// SetFromPath publishes cfg as the active configuration and records the
// on-disk path it was loaded from. Publishing again from the same path
// is safe; a different path requires Clear first.
func (s *Store) SetFromPath(path string, cfg tree.Map) error {
	return s.set(cfg, path)
}

func (s *Store) set(cfg tree.Map, path string) error {
	s.mu.Lock()

	if s.path != "" && s.path != path {
		recorded := s.path
		s.mu.Unlock()
		return stratum.Programmerf(
			"configuration already loaded from %s; call Clear before loading from %q", recorded, path)
	}

	old := s.cfg
	if old != nil && !s.warned {
		s.warned = true
		s.logger.Warn("resetting configuration to all new values")
	}

	s.cfg = tree.Clone(cfg)
	if path != "" {
		s.path = path
	}
	current := s.cfg
	s.mu.Unlock()

	s.notifyChanges(old, current, "set")
	return nil
}

// Get returns the configuration value at the given path. Each argument
// is one path step; steps may themselves be dotted ("server.port").
// With no arguments the whole tree is returned.
func (s *Store) Get(path ...string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cfg == nil {
		return nil, ErrNotConfigured
	}
	if len(path) == 0 {
		return s.cfg, nil
	}

	full := strings.Join(path, ".")
	val, ok := tree.GetByPath(s.cfg, full)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, full)
	}
	return val, nil
}

// Active reports whether a configuration is currently published.
func (s *Store) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg != nil
}

// Current returns a deep copy of the active tree, or nil.
func (s *Store) Current() tree.Map {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tree.Clone(s.cfg)
}

// Path returns the recorded on-disk path, if any.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// SetArgs records the runtime argument source the configuration was
// assembled with. Loaders use it to resolve runtime substitutions.
func (s *Store) SetArgs(src stratum.ArgSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.args = src
}

// Args returns the recorded runtime argument source, or nil.
func (s *Store) Args() stratum.ArgSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.args
}

// Clear unconditionally empties the store: tree, recorded path, and
// runtime argument bindings.
func (s *Store) Clear() {
	s.mu.Lock()
	old := s.cfg
	s.cfg = nil
	s.path = ""
	s.args = nil
	s.warned = false
	s.mu.Unlock()

	if old != nil {
		s.notifier.Notify(notify.Event{Kind: notify.KindClear, Source: "clear"})
	}
}

// ScopedOverride captures the full holder state, clears it, runs fn,
// and restores the captured state on the way out — also when fn returns
// an error. fn typically assembles and publishes a temporary
// configuration. Only one override may be outstanding; a nested call
// fails with a *ProgrammerError before running fn.
func (s *Store) ScopedOverride(fn func() error) error {
	s.mu.Lock()
	if s.saved != nil {
		s.mu.Unlock()
		return stratum.Programmerf("scoped configuration override is already active; nesting is unsupported")
	}
	s.saved = &snapshot{cfg: s.cfg, path: s.path, args: s.args, warned: s.warned}
	s.cfg = nil
	s.path = ""
	s.args = nil
	s.warned = false
	s.mu.Unlock()

	defer s.restore()
	return fn()
}

// restore reinstates the saved snapshot.
func (s *Store) restore() {
	s.mu.Lock()
	saved := s.saved
	if saved == nil {
		s.mu.Unlock()
		return
	}
	s.saved = nil
	s.cfg = saved.cfg
	s.path = saved.path
	s.args = saved.args
	s.warned = saved.warned
	s.mu.Unlock()

	s.notifier.Notify(notify.Event{Kind: notify.KindRestore, Source: "override"})
}

// OnChange registers an observer for every configuration event.
func (s *Store) OnChange(observer notify.Observer) *notify.Subscription {
	return s.notifier.Subscribe(observer)
}

// OnChangePath registers an observer for a path and everything under it.
func (s *Store) OnChangePath(path string, observer notify.Observer) *notify.Subscription {
	return s.notifier.SubscribePath(path, observer)
}

// notifyChanges emits per-path events for the differences between two
// trees, then a publish event.
func (s *Store) notifyChanges(old, new tree.Map, source string) {
	added, modified, removed := tree.Diff(old, new)
	for _, path := range added {
		val, _ := tree.GetByPath(new, path)
		s.notifier.Notify(notify.Event{Path: path, Kind: notify.KindSet, New: val, Source: source})
	}
	for _, path := range modified {
		oldVal, _ := tree.GetByPath(old, path)
		newVal, _ := tree.GetByPath(new, path)
		s.notifier.Notify(notify.Event{Path: path, Kind: notify.KindSet, Old: oldVal, New: newVal, Source: source})
	}
	for _, path := range removed {
		oldVal, _ := tree.GetByPath(old, path)
		s.notifier.Notify(notify.Event{Path: path, Kind: notify.KindDelete, Old: oldVal, Source: source})
	}
	s.notifier.Notify(notify.Event{Kind: notify.KindPublish, Source: source})
}

// SetFromModules assembles a configuration from a module forest with
// params as the runtime argument source, publishes it, and records the
// bindings. It is the programmatic (non-CLI) top-level entry point,
// suited to tests and tools.
func (s *Store) SetFromModules(modules []stratum.Configurable, params map[string]any) (tree.Map, error) {
	src := stratum.MapSource(params)
	cfg, err := stratum.Assemble(modules, nil, src)
	if err != nil {
		return nil, err
	}
	if err := s.Set(cfg); err != nil {
		return nil, err
	}
	s.SetArgs(src)
	return cfg, nil
}

// defaultStore is the process-wide store used by the package-level
// functions.
var defaultStore = New()

// Default returns the process-wide Store.
func Default() *Store { return defaultStore }

// Set publishes cfg on the default store.
func Set(cfg tree.Map) error { return defaultStore.Set(cfg) }

// Get reads from the default store.
func Get(path ...string) (any, error) { return defaultStore.Get(path...) }

// Clear empties the default store.
func Clear() { defaultStore.Clear() }

// ScopedOverride runs fn with the default store temporarily cleared.
func ScopedOverride(fn func() error) error { return defaultStore.ScopedOverride(fn) }
