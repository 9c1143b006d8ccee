package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dshills/stratum"
	"github.com/dshills/stratum/tree"
)

// YAML directives. Include tags splice in another document; runtime tags
// substitute values from the runtime argument source.
const (
	tagIncludeYAML    = "!include_yaml"
	tagIncludeRuntime = "!include_runtime"
	tagRuntime        = "!runtime"
)

// YAMLLoader loads configuration from YAML files, resolving directives.
//
//   - `!include_yaml FILE` replaces the node with the contents of FILE,
//     resolved relative to the including document.
//   - `!include_runtime ARG` does the same, with the file path taken
//     from the runtime argument named ARG.
//   - `!runtime ARG` substitutes the value of the runtime argument; a
//     bare `!runtime` substitutes the entire argument map.
type YAMLLoader struct {
	fs      FileSystem
	path    string
	runtime stratum.ArgSource
}

// NewYAMLLoader creates a new YAML loader for the given path.
func NewYAMLLoader(path string) *YAMLLoader {
	return &YAMLLoader{
		fs:   DefaultFS(),
		path: path,
	}
}

// NewYAMLLoaderWithFS creates a YAML loader with a custom file system.
func NewYAMLLoaderWithFS(fsys FileSystem, path string) *YAMLLoader {
	return &YAMLLoader{
		fs:   fsys,
		path: path,
	}
}

// SetRuntime supplies the argument source consulted by !runtime and
// !include_runtime directives. Documents without those directives load
// fine with no source set.
func (l *YAMLLoader) SetRuntime(src stratum.ArgSource) {
	l.runtime = src
}

// Load reads configuration from the configured path.
func (l *YAMLLoader) Load() (tree.Map, error) {
	return l.LoadFrom(l.path)
}

// LoadFrom reads configuration from a specific path.
func (l *YAMLLoader) LoadFrom(path string) (tree.Map, error) {
	data, err := l.fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // File doesn't exist, not an error
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	return l.parse(path, data, filepath.Dir(path))
}

// LoadFromReader reads configuration from a reader. Relative includes
// are unavailable because the document has no directory.
func (l *YAMLLoader) LoadFromReader(r io.Reader) (tree.Map, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config stream: %w", err)
	}
	return l.parse("<stream>", data, "")
}

// parse decodes data and resolves directives. root is the directory
// relative includes are resolved against ("" when unknown).
func (l *YAMLLoader) parse(path string, data []byte, root string) (tree.Map, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil // Empty document
	}

	val, err := l.resolve(&doc, root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if val == nil {
		return nil, nil
	}

	m, ok := val.(tree.Map)
	if !ok {
		return nil, stratum.Configf("", "document %s must be a mapping, not %T", path, val)
	}
	return m, nil
}

// resolve converts a yaml node to a tree value, applying directives.
func (l *YAMLLoader) resolve(node *yaml.Node, root string) (any, error) {
	switch node.Tag {
	case tagIncludeYAML:
		return l.includeFile(node.Value, root)
	case tagIncludeRuntime:
		arg, err := l.runtimeValue(node.Value)
		if err != nil {
			return nil, err
		}
		if arg == nil {
			return nil, stratum.Configf("", "%s: %q not set in runtime arguments", tagIncludeRuntime, node.Value)
		}
		path, ok := arg.(string)
		if !ok {
			return nil, stratum.Configf("", "%s: runtime argument %q must be a file path, got %T", tagIncludeRuntime, node.Value, arg)
		}
		return l.includeFile(path, root)
	case tagRuntime:
		if node.Value == "" {
			return l.runtimeAll()
		}
		return l.runtimeValue(node.Value)
	}

	switch node.Kind {
	case yaml.DocumentNode:
		return l.resolve(node.Content[0], root)
	case yaml.AliasNode:
		return l.resolve(node.Alias, root)
	case yaml.MappingNode:
		result := make(tree.Map, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode, valNode := node.Content[i], node.Content[i+1]
			val, err := l.resolve(valNode, root)
			if err != nil {
				return nil, err
			}
			result[keyNode.Value] = val
		}
		return result, nil
	case yaml.SequenceNode:
		result := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			val, err := l.resolve(item, root)
			if err != nil {
				return nil, err
			}
			result = append(result, val)
		}
		return result, nil
	default:
		var val any
		if err := node.Decode(&val); err != nil {
			return nil, fmt.Errorf("decoding scalar at line %d: %w", node.Line, err)
		}
		return val, nil
	}
}

// includeFile loads another document and splices it in.
func (l *YAMLLoader) includeFile(path, root string) (any, error) {
	if !filepath.IsAbs(path) {
		if root == "" {
			return nil, stratum.Configf("", "included %s is a relative path, but the document has no directory", path)
		}
		path = filepath.Join(root, path)
	}

	data, err := l.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("including %s: %w", path, err)
	}

	// An included document may be any value, not only a mapping.
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing included %s: %w", path, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	val, err := l.resolve(&doc, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return val, nil
}

// runtimeValue looks up one runtime argument. A missing key resolves to
// nil, which the overlay engine treats as delete/unset.
func (l *YAMLLoader) runtimeValue(key string) (any, error) {
	if l.runtime == nil {
		return nil, stratum.Configf("", "%s requires a runtime argument source", tagRuntime)
	}
	val, _ := l.runtime.Get(key)
	return val, nil
}

// runtimeAll returns the whole argument map for a bare !runtime.
func (l *YAMLLoader) runtimeAll() (any, error) {
	if l.runtime == nil {
		return nil, stratum.Configf("", "%s requires a runtime argument source", tagRuntime)
	}
	m, ok := l.runtime.(stratum.MapSource)
	if !ok {
		return nil, stratum.Configf("", "bare %s requires a map-backed runtime argument source", tagRuntime)
	}
	result := make(tree.Map, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result, nil
}
