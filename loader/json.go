package loader

import (
	"fmt"
	"io"
	"os"

	"github.com/tidwall/gjson"

	"github.com/dshills/stratum"
	"github.com/dshills/stratum/tree"
)

// JSONLoader loads configuration from JSON files.
type JSONLoader struct {
	fs   FileSystem
	path string
}

// NewJSONLoader creates a new JSON loader for the given path.
func NewJSONLoader(path string) *JSONLoader {
	return &JSONLoader{
		fs:   DefaultFS(),
		path: path,
	}
}

// NewJSONLoaderWithFS creates a JSON loader with a custom file system.
func NewJSONLoaderWithFS(fsys FileSystem, path string) *JSONLoader {
	return &JSONLoader{
		fs:   fsys,
		path: path,
	}
}

// Load reads configuration from the configured path.
func (l *JSONLoader) Load() (tree.Map, error) {
	return l.LoadFrom(l.path)
}

// LoadFrom reads configuration from a specific path.
func (l *JSONLoader) LoadFrom(path string) (tree.Map, error) {
	data, err := l.fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // File doesn't exist, not an error
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	return l.parse(path, data)
}

// LoadFromReader reads configuration from a reader.
func (l *JSONLoader) LoadFromReader(r io.Reader) (tree.Map, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config stream: %w", err)
	}
	return l.parse("<stream>", data)
}

// parse decodes JSON into a configuration tree.
func (l *JSONLoader) parse(path string, data []byte) (tree.Map, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parsing %s: invalid JSON", path)
	}

	val := gjson.ParseBytes(data).Value()
	if val == nil {
		return nil, nil
	}

	m, ok := val.(map[string]any)
	if !ok {
		return nil, stratum.Configf("", "document %s must be a JSON object, not %T", path, val)
	}
	return m, nil
}
