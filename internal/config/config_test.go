//go:build !(js && wasm)

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(envDBPath, "")
	t.Setenv(envStoreDriver, "")
	t.Setenv(envLogLevel, "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, defaultDBPath, cfg.Store.Options["path"])
	assert.Equal(t, "png", cfg.Engine.Format)
	assert.Empty(t, cfg.Engine.Backend)
	assert.Equal(t, 32, cfg.Store.CacheSize)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv(envDBPath, "")
	t.Setenv(envStoreDriver, "")
	t.Setenv(envLogLevel, "")

	path := writeConfig(t, `
photo_filters:
  log:
    level: debug
  store:
    driver: postgres
    cache_size: 0
    options:
      source: postgres://localhost/photos?sslmode=disable
  engine:
    format: jpeg
    backend: raster
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 0, cfg.Store.CacheSize)
	assert.Equal(t, "postgres://localhost/photos?sslmode=disable", cfg.Store.Options["source"])
	assert.Equal(t, "jpeg", cfg.Engine.Format)
	assert.Equal(t, BackendRaster, cfg.Engine.Backend)
	assert.Equal(t, 64, cfg.Events.Buffer, "unset sections keep defaults")
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv(envDBPath, "/tmp/env.db")
	t.Setenv(envStoreDriver, "memory")
	t.Setenv(envLogLevel, "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/env.db", cfg.Store.Options["path"])
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv(envDBPath, "")
	t.Setenv(envStoreDriver, "")
	t.Setenv(envLogLevel, "")

	tests := []struct {
		name string
		body string
	}{
		{"bad format", "photo_filters:\n  engine:\n    format: gif\n"},
		{"bad backend", "photo_filters:\n  engine:\n    backend: vulkan\n"},
		{"negative cache", "photo_filters:\n  store:\n    cache_size: -1\n"},
		{"negative buffer", "photo_filters:\n  events:\n    buffer: -2\n"},
		{"malformed yaml", "photo_filters: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
