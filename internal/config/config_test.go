package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "client", cfg.Persistence.Env)
	assert.Equal(t, "file", cfg.Persistence.Backend)
	assert.Equal(t, "data/desk_state.json", cfg.Persistence.Path)
	assert.Equal(t, "0 */5 * * * *", cfg.Schedule.RefreshCron)
	assert.False(t, cfg.API.DedupeRequests)
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: http://yaml:9000
  timeout: 5s
  dedupe_requests: true
persistence:
  env: server
  backend: sqlite
log:
  level: debug
`), 0o600))

	t.Setenv("DESK_BASE_URL", "http://env:1234")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://env:1234", cfg.API.BaseURL, "env wins over yaml")
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.True(t, cfg.API.DedupeRequests)
	assert.Equal(t, "server", cfg.Persistence.Env)
	assert.Equal(t, "data/desk.db", cfg.Persistence.Path, "sqlite default path")
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_BadTimeoutEnv(t *testing.T) {
	t.Setenv("DESK_API_TIMEOUT", "soon")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Persistence.Env = "browser"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Persistence.Backend = "redis"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Log.Level = "loud"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.API.BaseURL = ""
	assert.Error(t, cfg.Validate())
}
