package simconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a simulation config from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates and unmarshals YAML bytes directly, without touching
// the filesystem — used by Load and LoadArchived once they have read the
// file, and by tests that don't want a temp file.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}
	if cfg.Version == 0 {
		cfg.Version = CurrentConfigVersion
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
