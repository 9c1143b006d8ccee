package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDumpResolvesDirectives(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "server.yaml", "host: localhost\n")
	cfgPath := writeFile(t, dir, "config.yaml", "server: !include_yaml server.yaml\nmsg: !runtime greeting\n")

	out, err := runCommand(t, "dump", cfgPath, "--arg", "greeting=hello")
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(out, "host: localhost") {
		t.Errorf("output missing included value:\n%s", out)
	}
	if !strings.Contains(out, "msg: hello") {
		t.Errorf("output missing runtime value:\n%s", out)
	}
}

func TestMergeAppliesNullDeletion(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.yaml", "a: 1\nb: 2\n")
	over := writeFile(t, dir, "over.yaml", "b: null\nc: 3\n")

	out, err := runCommand(t, "merge", base, over)
	if err != nil {
		t.Fatal(err)
	}

	if strings.Contains(out, "b:") {
		t.Errorf("deleted key still present:\n%s", out)
	}
	if !strings.Contains(out, "a: 1") || !strings.Contains(out, "c: 3") {
		t.Errorf("unexpected merge output:\n%s", out)
	}
}

func TestGetPrintsValue(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "server:\n  port: 8080\n")

	out, err := runCommand(t, "get", path, "server.port")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "8080" {
		t.Errorf("out = %q, want 8080", out)
	}

	if _, err := runCommand(t, "get", path, "server.missing"); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestDiffListsChanges(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeFile(t, dir, "old.yaml", "a: 1\nb: 2\n")
	newPath := writeFile(t, dir, "new.yaml", "a: 9\nc: 3\n")

	out, err := runCommand(t, "diff", oldPath, newPath)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{"+ c", "~ a", "- b"} {
		if !strings.Contains(out, want) {
			t.Errorf("diff output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckReportsOK(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "a: 1\n")

	out, err := runCommand(t, "check", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "ok") {
		t.Errorf("out = %q", out)
	}
}

func TestCheckFailsOnBadDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", "= nope")

	if _, err := runCommand(t, "check", path); err == nil {
		t.Error("expected error for invalid document")
	}
}
