package stratum

import (
	"testing"

	"github.com/spf13/pflag"

	"github.com/dshills/stratum/tree"
)

// stubDocs serves canned documents by path.
type stubDocs map[string]tree.Map

func (d stubDocs) LoadFrom(path string) (tree.Map, error) {
	return d[path], nil
}

func testModules() []Configurable {
	return []Configurable{
		Decl{
			Name:     "top",
			Defaults: tree.Map{"msg": "hello"},
			Keys:     map[string]string{"msg": "msg"},
			Flags: func(fs *pflag.FlagSet) {
				fs.String("msg", "", "message to print")
			},
		},
	}
}

func TestParseArgsDefaultsOnly(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)

	cfg, _, err := ParseArgs(fs, testModules(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	if got, _ := tree.GetByPath(cfg, "top.msg"); got != "hello" {
		t.Errorf("top.msg = %v, want hello", got)
	}
	// The library's own block is always present.
	if _, ok := cfg[SelfName]; !ok {
		t.Errorf("missing %s block", SelfName)
	}
}

func TestParseArgsFlagOverridesDocument(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	docs := stubDocs{
		"app.yaml": {"top": tree.Map{"msg": "goodbye"}},
	}

	cfg, _, err := ParseArgs(fs, testModules(), []string{"--config", "app.yaml", "--msg", "override"}, docs)
	if err != nil {
		t.Fatal(err)
	}

	if got, _ := tree.GetByPath(cfg, "top.msg"); got != "override" {
		t.Errorf("top.msg = %v, want override", got)
	}
}

func TestParseArgsDocumentOverridesDefault(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	docs := stubDocs{
		"app.yaml": {"top": tree.Map{"msg": "goodbye"}},
	}

	cfg, _, err := ParseArgs(fs, testModules(), []string{"-c", "app.yaml"}, docs)
	if err != nil {
		t.Fatal(err)
	}

	if got, _ := tree.GetByPath(cfg, "top.msg"); got != "goodbye" {
		t.Errorf("top.msg = %v, want goodbye", got)
	}
	// The chosen path is recorded in the library's own block.
	if got, _ := tree.GetByPath(cfg, "stratum.config"); got != "app.yaml" {
		t.Errorf("stratum.config = %v, want app.yaml", got)
	}
}

func TestFlagSourceReportsOnlyChangedFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("set", "default", "")
	fs.String("unset", "default", "")
	fs.Int("count", 3, "")
	if err := fs.Parse([]string{"--set", "value", "--count", "7"}); err != nil {
		t.Fatal(err)
	}

	src := NewFlagSource(fs)

	if v, ok := src.Get("set"); !ok || v != "value" {
		t.Errorf("set = %v, %v", v, ok)
	}
	if _, ok := src.Get("unset"); ok {
		t.Error("unset flag reported as present")
	}
	if _, ok := src.Get("missing"); ok {
		t.Error("unknown flag reported as present")
	}
	if v, ok := src.Get("count"); !ok || v != 7 {
		t.Errorf("count = %v (%T), want int 7", v, v)
	}
}

func TestDeclareFlagsDetectsDuplicates(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	modules := []Configurable{Decl{Name: "a"}, Decl{Name: "a"}}

	if err := DeclareFlags(fs, modules); !IsProgrammerError(err) {
		t.Fatalf("expected ProgrammerError, got %v", err)
	}
}
