package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadYAMLWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
  env: production
postgres:
  url: postgres://file
auth:
  secret: from-file
  tokenTTL: 24h
contest:
  cacheTTL: 30s
`), 0o600))

	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "postgres://env", cfg.Postgres.URL)
	assert.Equal(t, "from-file", cfg.Auth.Secret)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 30*time.Second, TTLDuration(cfg.Contest.CacheTTL, time.Minute))
	assert.Equal(t, "/uploads", cfg.Uploads.BaseURL)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Auth.Secret)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.False(t, cfg.IsProduction())
}

func TestTTLDuration(t *testing.T) {
	assert.Equal(t, time.Minute, TTLDuration("", time.Minute))
	assert.Equal(t, time.Minute, TTLDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Hour, TTLDuration("2h", time.Minute))
}
