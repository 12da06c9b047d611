package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("STAFFLY_ACCESS_SECRET", "access-secret")
	t.Setenv("STAFFLY_REFRESH_SECRET", "refresh-secret")
	t.Setenv("STAFFLY_CSRF_SECRET", "csrf-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, 10, cfg.LoginRateBurst)
	assert.Equal(t, 5, cfg.LoginRatePerSec)
	assert.True(t, cfg.CookieSecure(), "secure cookies outside dev mode")
}

func TestLoadMissingSecretFails(t *testing.T) {
	t.Setenv("STAFFLY_ACCESS_SECRET", "access-secret")
	t.Setenv("STAFFLY_REFRESH_SECRET", "refresh-secret")
	t.Setenv("STAFFLY_CSRF_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsSharedSecret(t *testing.T) {
	t.Setenv("STAFFLY_ACCESS_SECRET", "same-secret")
	t.Setenv("STAFFLY_REFRESH_SECRET", "same-secret")
	t.Setenv("STAFFLY_CSRF_SECRET", "csrf-secret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestDevModeDisablesSecureCookies(t *testing.T) {
	setRequired(t)
	t.Setenv("STAFFLY_DEV", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.CookieSecure())
}
