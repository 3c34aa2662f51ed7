package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths is the resolved directory layout. It is the single source of truth
// for file locations across the application.
type Paths struct {
	BaseDir    string
	DataDir    string
	UploadsDir string
	ExportsDir string
	SchemasDir string
	LogsDir    string
	Database   string
}

// ResolvePaths turns the configured (possibly relative) path settings into
// absolute paths under the base directory and creates the directories when
// missing. An empty base falls back to the current working directory.
func (c *Config) ResolvePaths() (*Paths, error) {
	base := c.Paths.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		base = wd
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	p := &Paths{
		BaseDir:    abs,
		DataDir:    resolveUnder(abs, c.Paths.DataDir),
		UploadsDir: resolveUnder(abs, c.Paths.UploadsDir),
		ExportsDir: resolveUnder(abs, c.Paths.ExportsDir),
		SchemasDir: resolveUnder(abs, c.Ingestion.SchemaDir),
		LogsDir:    resolveUnder(abs, c.Paths.LogsDir),
		Database:   resolveUnder(abs, c.Database.File),
	}

	for _, dir := range []string{p.DataDir, p.UploadsDir, p.ExportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return p, nil
}

func resolveUnder(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
