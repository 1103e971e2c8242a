package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("SESSION_TTL", "")

	cfg := Load()
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "8081", cfg.HTTPPort)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STORE_BACKEND", BackendMongo)
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("RATE_LIMIT_PER_MIN", "30")
	t.Setenv("QUEUE_BACKEND", "memory")

	cfg := Load()
	assert.Equal(t, BackendMongo, cfg.StoreBackend)
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, 30, cfg.RateLimitPerMin)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_TTL", "soon")
	t.Setenv("COOKIE_SECURE", "maybe")
	t.Setenv("RATE_LIMIT_PER_MIN", "lots")

	cfg := Load()
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
}

func TestValidate(t *testing.T) {
	base := App{StoreBackend: BackendMemory, QueueBackend: "memory", JWTSigningKey: "k"}
	require.NoError(t, base.Validate())

	bad := base
	bad.StoreBackend = "sqlite"
	assert.Error(t, bad.Validate())

	bad = base
	bad.QueueBackend = "kafka"
	assert.Error(t, bad.Validate())

	prod := base
	prod.Env = "production"
	prod.JWTSigningKey = "dev-signing-secret-change"
	assert.Error(t, prod.Validate())
}
