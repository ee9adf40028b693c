package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepamak/pump-tracker/internal/domain"
)

func TestLoad_DefaultsMatchBuiltIn(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, domain.DefaultCriteria(), cfg.Filter)
	assert.Equal(t, 2*time.Second, cfg.Feed.ReconnectDelay)
	assert.True(t, cfg.Feed.AutoReconnect)
	assert.Empty(t, cfg.Feed.Endpoint)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
feed:
  endpoint: wss://feed.example.com/ws
  reconnect_delay: 5s
filter:
  post_only: true
  max_items: 50
devlists:
  dirs: [/a, /b]
`), 0o600))

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "wss://feed.example.com/ws", cfg.Feed.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.Feed.ReconnectDelay)
	assert.Equal(t, 30*time.Second, cfg.Feed.PingInterval, "untouched keys keep defaults")
	assert.True(t, cfg.Filter.PostOnly)
	assert.Equal(t, 50, cfg.Filter.MaxItems)
	assert.Equal(t, []string{"/a", "/b"}, cfg.DevLists.Dirs)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feed:\n  api_key: from-file\n"), 0o600))

	t.Setenv("PUMP_FEED_API_KEY", "from-env")
	t.Setenv("PUMP_FILTER_MIN_NUM_HOLDERS", "25")
	t.Setenv("PUMP_FEED_READ_TIMEOUT", "2m")
	t.Setenv("PUMP_DEVLISTS_DIRS", "/x, /y")

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Feed.APIKey)
	assert.Equal(t, int64(25), cfg.Filter.MinNumHolders)
	assert.Equal(t, 2*time.Minute, cfg.Feed.ReadTimeout)
	assert.Equal(t, []string{"/x", "/y"}, cfg.DevLists.Dirs)
}

func TestLoad_DotEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PUMP_STORAGE_POSTGRES_DSN=postgres://localhost/pump\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("PUMP_STORAGE_POSTGRES_DSN") })

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/pump", cfg.Storage.PostgresDSN)

	_, err = Load("", filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err, "missing .env is not an error")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"negative delay", func(c *Config) { c.Feed.ReconnectDelay = -time.Second }},
		{"read timeout below ping", func(c *Config) { c.Feed.ReadTimeout = 10 * time.Second }},
		{"pct out of range", func(c *Config) { c.Filter.MaxTop10HoldersPct = 101 }},
		{"negative holders", func(c *Config) { c.Filter.MinNumHolders = -1 }},
		{"zero max items", func(c *Config) { c.Filter.MaxItems = 0 }},
		{"bad health interval", func(c *Config) { c.Health.Interval = 0 }},
		{"bad log output", func(c *Config) { c.Logger.Output = "syslog" }},
	}

	require.NoError(t, Default().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "feed.api_key", envKey("PUMP_FEED_API_KEY"))
	assert.Equal(t, "storage.clickhouse_dsn", envKey("PUMP_STORAGE_CLICKHOUSE_DSN"))
	assert.Equal(t, "debug", envKey("PUMP_DEBUG"))
}
