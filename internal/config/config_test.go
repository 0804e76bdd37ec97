package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "AUTH_JWT_SECRET", "AUTH_ALLOW_LOOPBACK_MISMATCH", "AUTH_SESSION_MAX_AGE_MINUTES",
		"RATE_LIMIT_BACKEND", "RATE_LIMIT_LOGIN_MAX_ATTEMPTS", "RATE_LIMIT_LOGIN_WINDOW_MINUTES", "REDIS_DB",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.App.IsProduction())
	assert.True(t, cfg.Auth.AllowLoopbackMismatch)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionMaxAge())
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, 5, cfg.RateLimit.LoginMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.LoginWindow())
	assert.NotEmpty(t, cfg.Auth.JWTSecret)
}

func TestLoadProductionRequiresSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("AUTH_JWT_SECRET", "short")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.App.IsProduction())
	assert.True(t, cfg.Auth.WeakSecret())
	assert.False(t, cfg.Auth.AllowLoopbackMismatch)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("AUTH_ALLOW_LOOPBACK_MISMATCH", "false")
	t.Setenv("RATE_LIMIT_BACKEND", "Redis")
	t.Setenv("RATE_LIMIT_LOGIN_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("AUTH_SESSION_MAX_AGE_MINUTES", "60")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Auth.WeakSecret())
	assert.False(t, cfg.Auth.AllowLoopbackMismatch)
	assert.Equal(t, "redis", cfg.RateLimit.Backend)
	assert.Equal(t, 5, cfg.RateLimit.LoginMaxAttempts)
	assert.Equal(t, time.Hour, cfg.Auth.SessionMaxAge())
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("RATE_LIMIT_BACKEND", "memcached")

	_, err := Load()
	assert.Error(t, err)
}
