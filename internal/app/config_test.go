package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "session-secret")
	t.Setenv("CSRF_SECRET", "csrf-secret")
	t.Setenv("TOKEN_SECRET", "0123456789abcdef0123456789abcdef")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 15*time.Second, cfg.TransitionTimeout)
	assert.Equal(t, 10*time.Second, cfg.PermissionsTimeout)
	assert.Equal(t, 20*time.Second, cfg.LockTTL())
	assert.Equal(t, "dagelec", cfg.MinIOBucket)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("CSRF_SECRET", "csrf-secret")
	t.Setenv("TOKEN_SECRET", "0123456789abcdef0123456789abcdef")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsShortTokenSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TOKEN_SECRET", "short")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "token secret")
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("TRANSITION_TIMEOUT", "3s")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 3*time.Second, cfg.TransitionTimeout)
	assert.True(t, cfg.MinIOUseSSL)
}
