package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SALES_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "salespulse.db", cfg.Database.File)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, int64(32), cfg.Ingestion.MaxUploadMB)
	assert.True(t, cfg.Security.RateLimit.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SALES_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("SALES_SERVER_PORT", "9090")
	t.Setenv("SALES_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 3000
database:
  file: custom.db
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("SALES_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "custom.db", cfg.Database.File)
	assert.Equal(t, "warn", cfg.Logging.Level)
	// Untouched fields keep their defaults.
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadRejectsInvalidLevel(t *testing.T) {
	t.Setenv("SALES_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("SALES_LOGGING_LEVEL", "loud")

	_, err := Load()
	assert.Error(t, err)
}

func TestResolvePathsCreatesDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := &Config{}
	cfg.Paths.BaseDir = base
	cfg.Paths.DataDir = "data"
	cfg.Paths.UploadsDir = "data/uploads"
	cfg.Paths.ExportsDir = "data/exports"
	cfg.Paths.LogsDir = "logs"
	cfg.Ingestion.SchemaDir = "schemas"
	cfg.Database.File = "salespulse.db"

	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)

	assert.DirExists(t, paths.DataDir)
	assert.DirExists(t, paths.UploadsDir)
	assert.DirExists(t, paths.ExportsDir)
	assert.DirExists(t, paths.LogsDir)
	assert.Equal(t, filepath.Join(base, "salespulse.db"), paths.Database)
}
