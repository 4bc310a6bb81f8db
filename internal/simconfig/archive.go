package simconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// archiveFilename is the name a run's resolved config is archived under
// inside its output directory, so a later `mixsim stats` or `mixsim merge`
// invocation (or a human) can recover exactly what produced a given CSV
// without needing the original invocation's flags.
const archiveFilename = "config.resolved.yaml"

// Archive writes cfg into dir/config.resolved.yaml, using a temp-file-then-
// rename so a crash mid-write never leaves a truncated archive next to a
// session's output (same atomic-write shape as a config daemon's
// last-known-good archive, applied here to a one-shot run's provenance
// record instead of a live rollback target).
func Archive(dir string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("archive: marshal config: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("archive: create dir: %w", err)
	}

	dst := filepath.Join(dir, archiveFilename)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("archive: write temp: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("archive: rename: %w", err)
	}
	return nil
}

// LoadArchived reads back a config previously written by Archive. Returns
// ErrNoArchive if dir has no archived config.
func LoadArchived(dir string) (*Config, error) {
	path := filepath.Join(dir, archiveFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoArchive, path)
		}
		return nil, fmt.Errorf("load archived config: %w", err)
	}
	return Parse(data)
}
