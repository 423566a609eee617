package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaultsWithoutEnvFile(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, 5*time.Second, cfg.Database.StoreTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Catalog.CacheTTL)
	assert.True(t, cfg.Catalog.CacheEnabled)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("API_PREFIX", "/v1")
	t.Setenv("STORE_TIMEOUT", "250ms")
	t.Setenv("ENABLE_CATALOG_CACHE", "false")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("DB_NAME", "plans")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/v1", cfg.APIPrefix)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.StoreTimeout)
	assert.False(t, cfg.Catalog.CacheEnabled)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Contains(t, cfg.Database.DSN(), "dbname=plans")
}
