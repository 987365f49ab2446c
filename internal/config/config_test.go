package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, float64(10), cfg.RateLimitRPS)
	assert.Equal(t, time.Duration(0), cfg.CacheTTL)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(
		"port: \"9090\"\n" +
			"allowed_origins:\n" +
			"  - https://covidamp.org\n" +
			"cache_ttl: 6h\n" +
			"rate_limit_rps: 25\n" +
			"rate_limit_burst: 50\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"https://covidamp.org"}, cfg.AllowedOrigins)
	assert.Equal(t, 6*time.Hour, cfg.CacheTTL)
	assert.Equal(t, float64(25), cfg.RateLimitRPS)
	assert.Equal(t, 50, cfg.RateLimitBurst)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9090\"\n"), 0o644))

	t.Setenv("PORT", "3000")
	t.Setenv("CACHE_TTL", "30m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("CACHE_TTL", "not-a-duration")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("CACHE_TTL", "1h")
	t.Setenv("RATE_LIMIT_RPS", "-1")
	_, err = Load("")
	assert.Error(t, err)
}
