package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable LoadConfig reads so the host
// environment cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()

	t.Setenv(ConfigPathEnvVar, "")
	for key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, defaultConfig(), *cfg)
	assert.Equal(t, 5001, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "chemlink_analytics", cfg.Database.Name)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "postgres", cfg.Database.Password)
	assert.Zero(t, cfg.Database.QueryTimeout)
}

func TestLoadConfigEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("ANALYTICS_DB_HOST", "analytics-db.reporting.svc")
	t.Setenv("ANALYTICS_DB_PORT", "6543")
	t.Setenv("ANALYTICS_DB_NAME", "reporting")
	t.Setenv("ANALYTICS_DB_USER", "reader")
	t.Setenv("ANALYTICS_DB_PASSWORD", "s3cret")
	t.Setenv("ANALYTICS_DB_SSLMODE", "require")
	t.Setenv("ANALYTICS_DB_QUERY_TIMEOUT", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "analytics-db.reporting.svc", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "reporting", cfg.Database.Name)
	assert.Equal(t, "reader", cfg.Database.User)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Equal(t, 30*time.Second, cfg.Database.QueryTimeout)
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
database:
  host: file-host
  name: staging_analytics
  max_open_conns: 4
`), 0o600))

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("ANALYTICS_DB_NAME", "from_env")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "file-host", cfg.Database.Host)
	assert.Equal(t, 4, cfg.Database.MaxOpenConns)
	// The environment wins over the file.
	assert.Equal(t, "from_env", cfg.Database.Name)
	// Untouched keys keep their defaults.
	assert.Equal(t, "postgres", cfg.Database.User)
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Run("SSLMode", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ANALYTICS_DB_SSLMODE", "sometimes")

		_, err := LoadConfig()
		require.ErrorContains(t, err, "invalid config")
	})

	t.Run("Port", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ANALYTICS_DB_PORT", "70000")

		_, err := LoadConfig()
		require.ErrorContains(t, err, "invalid config")
	})

	t.Run("Missing file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "nope.yaml"))

		_, err := LoadConfig()
		require.Error(t, err)
	})
}
