package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osm-route-server/overpass"
)

var envKeys = []string{
	"PORT", "ADMIN_PORT", "LOG_LEVEL", "LOG_FORMAT", "OVERPASS_URL",
	"OVERPASS_OFFLINE_FILE", "GRAPH_CACHE_SIZE", "GRAPH_VERIFY_ON_LOAD",
}

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, time.Minute, cfg.Overpass.Timeout())
	assert.Equal(t, 30*time.Second, cfg.Overpass.RetryWindow())

	assert.Equal(t, overpass.DEFAULT_ENDPOINT, cfg.Overpass.URL)
	assert.Equal(t, overpass.DEFAULT_USER_AGENT, cfg.Overpass.UserAgent)
	assert.Equal(t, overpass.DEFAULT_TIMEOUT, cfg.Overpass.Timeout())
	assert.Equal(t, overpass.DEFAULT_RETRY_WINDOW, cfg.Overpass.RetryWindow())
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
port = "9090"
log_format = "console"

[overpass]
url = "http://localhost:12345/api/interpreter"
timeout_seconds = 5

[graph]
cache_size = 4
verify_on_load = false

[cors]
allow_origins = ["http://localhost:3000"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, ":8081", cfg.AdminPort)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "http://localhost:12345/api/interpreter", cfg.Overpass.URL)
	assert.Equal(t, 5*time.Second, cfg.Overpass.Timeout())
	// untouched keys keep their defaults
	assert.Equal(t, overpass.DEFAULT_USER_AGENT, cfg.Overpass.UserAgent)
	assert.Equal(t, 4, cfg.Graph.CacheSize)
	assert.False(t, cfg.Graph.VerifyOnLoad)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowOrigins)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `port = ":9090"`)
	t.Setenv("PORT", "7000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OVERPASS_OFFLINE_FILE", "/data/montreal.json")
	t.Setenv("GRAPH_CACHE_SIZE", "2")
	t.Setenv("GRAPH_VERIFY_ON_LOAD", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/data/montreal.json", cfg.Overpass.OfflineFile)
	assert.Equal(t, 2, cfg.Graph.CacheSize)
	assert.False(t, cfg.Graph.VerifyOnLoad)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("bad toml", func(t *testing.T) {
		_, err := Load(writeConfig(t, `port = `))
		assert.ErrorContains(t, err, "error decoding config file")
	})

	t.Run("bad env", func(t *testing.T) {
		t.Setenv("GRAPH_CACHE_SIZE", "many")
		_, err := Load("")
		assert.ErrorContains(t, err, "GRAPH_CACHE_SIZE")
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
admin_port = ":8080"
log_format = "xml"

[graph]
cache_size = 0
`))
		require.Error(t, err)
		assert.ErrorContains(t, err, "admin_port must differ from port")
		assert.ErrorContains(t, err, "log_format")
		assert.ErrorContains(t, err, "graph.cache_size")
	})

	t.Run("no data source", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
[overpass]
url = ""
`))
		assert.ErrorContains(t, err, "overpass.url is required")
	})
}
