package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "STORE_BACKEND", "REDIS_URL", "IDENTITY_CACHE_TTL_SECONDS", "CORS_ALLOWED_ORIGINS", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 5*time.Minute, cfg.IdentityCacheTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "boards")
	t.Setenv("IDENTITY_CACHE_TTL_SECONDS", "60")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, time.Minute, cfg.IdentityCacheTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	assert.Contains(t, cfg.Postgres.DSN(), "host=db")
	assert.Contains(t, cfg.Postgres.DSN(), "dbname=boards")
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "cassandra")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cassandra")
}

func TestFirestoreNeedsCredentials(t *testing.T) {
	t.Setenv("STORE_BACKEND", "firestore")
	t.Setenv("FIREBASE_CREDENTIALS_PATH", "")

	_, err := Load()
	require.Error(t, err)
}

func TestBadIntegerFallsBack(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("IDENTITY_CACHE_TTL_SECONDS", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.IdentityCacheTTL)
}
