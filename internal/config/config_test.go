package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AMAZON_HOST", "https://www.amazon.example")
	t.Setenv("AMAZON_USER", "user@example.com")
	t.Setenv("AMAZON_PASSWORD", "secret")
	t.Setenv("FIREFLY_HOST", "https://firefly.example")
	t.Setenv("FIREFLY_TOKEN", "token")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ".cache/", cfg.CacheDir)
	assert.Equal(t, "file", cfg.CacheBackend)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, `destination_account_starts:"Amazon"`, cfg.BaseQuery)
	assert.Equal(t, "defer", cfg.ScrapeFailurePolicy)
	assert.Equal(t, 2, *cfg.MinDelaySeconds)
	assert.Equal(t, 5, *cfg.MaxDelaySeconds)
	assert.Equal(t, "https://firefly.example", cfg.FireflyHost)
}

func TestLoadFile(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cache_dir: /var/cache/reconciler
log_level: debug
scrape_failure_policy: tag
base_query: 'destination_account_starts:"AMZN"'
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/cache/reconciler", cfg.CacheDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "tag", cfg.ScrapeFailurePolicy)
	assert.Equal(t, `destination_account_starts:"AMZN"`, cfg.BaseQuery)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache_dri: typo\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestExplicitZeroDelayIsKept(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
min_delay_seconds: 0
max_delay_seconds: 0
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Zero disables the politeness delay; it must not be re-defaulted.
	assert.Equal(t, 0, *cfg.MinDelaySeconds)
	assert.Equal(t, 0, *cfg.MaxDelaySeconds)
}

func TestLoadReportsAllMissingEnvVars(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AMAZON_PASSWORD", "")
	t.Setenv("FIREFLY_TOKEN", "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AMAZON_PASSWORD")
	assert.Contains(t, err.Error(), "FIREFLY_TOKEN")
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := &Config{
		CacheBackend:        "redis",
		LogLevel:            "loud",
		ScrapeFailurePolicy: "panic",
		MinDelaySeconds:     intp(5),
		MaxDelaySeconds:     intp(2),
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis_addr is required")
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "scrape_failure_policy")
	assert.Contains(t, err.Error(), "delay bounds")
}
