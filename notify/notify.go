// Package notify delivers configuration change events.
//
// The store publishes an Event whenever the active configuration tree is
// replaced, cleared, or restored, plus one event per dotted path whose
// value changed between the old and new trees. Components subscribe to
// everything or to a path prefix.
package notify

import (
	"sync"
)

// Kind classifies a configuration change.
type Kind int

const (
	// KindSet indicates a value appeared or changed.
	KindSet Kind = iota

	// KindDelete indicates a value disappeared.
	KindDelete

	// KindPublish indicates the whole configuration tree was replaced.
	KindPublish

	// KindClear indicates the configuration was cleared.
	KindClear

	// KindRestore indicates a scoped override exited and the previous
	// configuration is active again.
	KindRestore
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSet:
		return "set"
	case KindDelete:
		return "delete"
	case KindPublish:
		return "publish"
	case KindClear:
		return "clear"
	case KindRestore:
		return "restore"
	default:
		return "unknown"
	}
}

// Event is one configuration change.
type Event struct {
	// Path is the dotted path of the changed value.
	// Empty for whole-tree events (publish, clear, restore).
	Path string

	// Kind classifies the change.
	Kind Kind

	// Old is the previous value (nil for new keys and whole-tree events).
	Old any

	// New is the new value (nil for deletes and whole-tree events).
	New any

	// Source names where the change came from (e.g. "set", "override").
	Source string
}

// Observer is called for each matching event.
type Observer func(ev Event)

// Subscription is an active observer registration.
type Subscription struct {
	id       uint64
	path     string
	notifier *Notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// Notifier fans configuration events out to subscribers.
type Notifier struct {
	mu sync.RWMutex

	global map[uint64]Observer
	byPath map[string]map[uint64]Observer
	nextID uint64

	async  bool
	buffer chan Event
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAsync buffers events and delivers them from a separate goroutine.
func WithAsync(bufferSize int) Option {
	return func(n *Notifier) {
		if bufferSize > 0 {
			n.async = true
			n.buffer = make(chan Event, bufferSize)
		}
	}
}

// New creates a Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		global: make(map[uint64]Observer),
		byPath: make(map[string]map[uint64]Observer),
		done:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(n)
	}

	if n.async {
		n.wg.Add(1)
		go n.deliverLoop()
	}

	return n
}

// Subscribe registers an observer for every event.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.global[id] = observer

	return &Subscription{id: id, notifier: n}
}

// SubscribePath registers an observer for a path and everything under it.
// Subscribing to "server" receives events for "server.port". Whole-tree
// events (empty path) reach every path subscriber.
func (n *Notifier) SubscribePath(path string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++

	if n.byPath[path] == nil {
		n.byPath[path] = make(map[uint64]Observer)
	}
	n.byPath[path][id] = observer

	return &Subscription{id: id, path: path, notifier: n}
}

// Notify delivers an event to all matching observers.
func (n *Notifier) Notify(ev Event) {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	n.mu.RUnlock()

	if n.async {
		select {
		case n.buffer <- ev:
		case <-n.done:
		}
		return
	}

	n.deliver(ev)
}

// Close shuts the notifier down. Safe to call more than once.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.global, id)

	for path, observers := range n.byPath {
		delete(observers, id)
		if len(observers) == 0 {
			delete(n.byPath, path)
		}
	}
}

func (n *Notifier) deliver(ev Event) {
	n.mu.RLock()

	var observers []Observer
	for _, obs := range n.global {
		observers = append(observers, obs)
	}

	if ev.Path != "" {
		if exact, ok := n.byPath[ev.Path]; ok {
			for _, obs := range exact {
				observers = append(observers, obs)
			}
		}
		for path, pathObs := range n.byPath {
			if isPrefixPath(path, ev.Path) {
				for _, obs := range pathObs {
					observers = append(observers, obs)
				}
			}
		}
	} else {
		for _, pathObs := range n.byPath {
			for _, obs := range pathObs {
				observers = append(observers, obs)
			}
		}
	}

	n.mu.RUnlock()

	// Observers run outside the lock.
	for _, obs := range observers {
		obs(ev)
	}
}

func (n *Notifier) deliverLoop() {
	defer n.wg.Done()

	for {
		select {
		case ev := <-n.buffer:
			n.deliver(ev)
		case <-n.done:
			// Drain what was buffered before shutdown.
			for {
				select {
				case ev := <-n.buffer:
					n.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

// isPrefixPath checks whether parent is a strict dotted prefix of child.
func isPrefixPath(parent, child string) bool {
	if len(parent) >= len(child) {
		return false
	}
	if parent == "" {
		return true
	}
	return child[:len(parent)] == parent && child[len(parent)] == '.'
}
