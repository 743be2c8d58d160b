// pkg/messages/load.go
package messages

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML catalogue and merges it over the defaults. Keys left out of the
// file keep their default text. An empty path returns the defaults.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read message catalogue %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over a copy of the defaults.
func Parse(data []byte) (*Catalog, error) {
	cat := Default()
	if err := yaml.Unmarshal(data, cat); err != nil {
		return nil, fmt.Errorf("failed to parse message catalogue: %w", err)
	}
	return cat, nil
}
