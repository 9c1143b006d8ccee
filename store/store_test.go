package store

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/dshills/stratum"
	"github.com/dshills/stratum/notify"
	"github.com/dshills/stratum/tree"
)

func TestSetAndGet(t *testing.T) {
	s := New()

	if err := s.Set(tree.Map{"top": tree.Map{"msg": "hello"}}); err != nil {
		t.Fatal(err)
	}

	val, err := s.Get("top", "msg")
	if err != nil {
		t.Fatal(err)
	}
	if val != "hello" {
		t.Errorf("top.msg = %v, want hello", val)
	}

	// Dotted segments work too.
	val, err = s.Get("top.msg")
	if err != nil {
		t.Fatal(err)
	}
	if val != "hello" {
		t.Errorf("top.msg = %v, want hello", val)
	}

	// No arguments returns the whole tree.
	whole, err := s.Get()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := whole.(tree.Map); !ok {
		t.Errorf("whole tree is %T", whole)
	}
}

func TestGetNotConfigured(t *testing.T) {
	s := New()

	if _, err := s.Get("anything"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestGetMissingKey(t *testing.T) {
	s := New()
	if err := s.Set(tree.Map{"a": 1}); err != nil {
		t.Fatal(err)
	}

	_, err := s.Get("a", "b")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "a.b") {
		t.Errorf("error %q does not name the path", err)
	}
}

func TestClear(t *testing.T) {
	s := New()
	if err := s.Set(tree.Map{"a": 1}); err != nil {
		t.Fatal(err)
	}
	s.SetArgs(stratum.MapSource{"x": 1})

	s.Clear()

	if s.Active() {
		t.Error("store still active after Clear")
	}
	if s.Args() != nil {
		t.Error("runtime bindings survived Clear")
	}
	if s.Path() != "" {
		t.Error("recorded path survived Clear")
	}
}

func TestSetFromPathConflict(t *testing.T) {
	s := New()

	if err := s.SetFromPath("/etc/app.yaml", tree.Map{"a": 1}); err != nil {
		t.Fatal(err)
	}
	// Same path again is fine.
	if err := s.SetFromPath("/etc/app.yaml", tree.Map{"a": 2}); err != nil {
		t.Fatal(err)
	}

	// A different path is refused.
	err := s.SetFromPath("/etc/other.yaml", tree.Map{"a": 3})
	if !stratum.IsProgrammerError(err) {
		t.Fatalf("expected ProgrammerError, got %v", err)
	}
	// So is a pathless Set while a path is recorded.
	if err := s.Set(tree.Map{"a": 4}); !stratum.IsProgrammerError(err) {
		t.Fatalf("expected ProgrammerError, got %v", err)
	}

	// Clear resets the guard.
	s.Clear()
	if err := s.SetFromPath("/etc/other.yaml", tree.Map{"a": 3}); err != nil {
		t.Fatal(err)
	}
}

func TestOverwriteWarnsOnce(t *testing.T) {
	var buf bytes.Buffer
	s := New(WithLogger(log.New(&buf)))

	if err := s.Set(tree.Map{"a": 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(tree.Map{"a": 2}); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(tree.Map{"a": 3}); err != nil {
		t.Fatal(err)
	}

	if got := strings.Count(buf.String(), "resetting configuration"); got != 1 {
		t.Errorf("warning emitted %d times, want 1 (output: %q)", got, buf.String())
	}
}

func TestScopedOverrideRestores(t *testing.T) {
	s := New()
	if err := s.Set(tree.Map{"top": tree.Map{"msg": "original"}}); err != nil {
		t.Fatal(err)
	}
	s.SetArgs(stratum.MapSource{"k": "v"})

	err := s.ScopedOverride(func() error {
		if s.Active() {
			t.Error("store not cleared inside override")
		}
		if err := s.Set(tree.Map{"top": tree.Map{"msg": "temporary"}}); err != nil {
			return err
		}
		val, err := s.Get("top", "msg")
		if err != nil {
			return err
		}
		if val != "temporary" {
			t.Errorf("inside override: top.msg = %v", val)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	val, err := s.Get("top", "msg")
	if err != nil {
		t.Fatal(err)
	}
	if val != "original" {
		t.Errorf("after override: top.msg = %v, want original", val)
	}
	if s.Args() == nil {
		t.Error("runtime bindings not restored")
	}
}

func TestScopedOverrideRestoresOnError(t *testing.T) {
	s := New()
	if err := s.Set(tree.Map{"a": 1}); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := s.ScopedOverride(func() error {
		if err := s.Set(tree.Map{"a": 99}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	val, err := s.Get("a")
	if err != nil {
		t.Fatal(err)
	}
	if val != 1 {
		t.Errorf("a = %v, want 1", val)
	}
}

func TestScopedOverrideRejectsNesting(t *testing.T) {
	s := New()

	err := s.ScopedOverride(func() error {
		return s.ScopedOverride(func() error { return nil })
	})
	if !stratum.IsProgrammerError(err) {
		t.Fatalf("expected ProgrammerError, got %v", err)
	}
}

func TestSetFromModules(t *testing.T) {
	s := New()
	modules := []stratum.Configurable{
		stratum.Decl{
			Name:     "top",
			Defaults: tree.Map{"msg": "hello"},
			Keys:     map[string]string{"cli_msg": "msg"},
		},
	}

	cfg, err := s.SetFromModules(modules, map[string]any{"cli_msg": "override"})
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := tree.GetByPath(cfg, "top.msg"); got != "override" {
		t.Errorf("top.msg = %v, want override", got)
	}

	val, err := s.Get("top", "msg")
	if err != nil {
		t.Fatal(err)
	}
	if val != "override" {
		t.Errorf("store top.msg = %v, want override", val)
	}
	if s.Args() == nil {
		t.Error("bindings not recorded")
	}
}

func TestOnChangeEvents(t *testing.T) {
	s := New()

	var events []notify.Event
	sub := s.OnChange(func(ev notify.Event) { events = append(events, ev) })
	defer sub.Unsubscribe()

	if err := s.Set(tree.Map{"a": 1}); err != nil {
		t.Fatal(err)
	}

	var sawSet, sawPublish bool
	for _, ev := range events {
		switch ev.Kind {
		case notify.KindSet:
			if ev.Path == "a" && ev.New == 1 {
				sawSet = true
			}
		case notify.KindPublish:
			sawPublish = true
		}
	}
	if !sawSet || !sawPublish {
		t.Errorf("events = %+v", events)
	}

	events = nil
	s.Clear()
	if len(events) != 1 || events[0].Kind != notify.KindClear {
		t.Errorf("clear events = %+v", events)
	}
}

func TestCurrentIsACopy(t *testing.T) {
	s := New()
	if err := s.Set(tree.Map{"a": tree.Map{"b": 1}}); err != nil {
		t.Fatal(err)
	}

	cur := s.Current()
	cur["a"].(tree.Map)["b"] = 99

	val, err := s.Get("a", "b")
	if err != nil {
		t.Fatal(err)
	}
	if val != 1 {
		t.Error("Current() aliases the stored tree")
	}
}
