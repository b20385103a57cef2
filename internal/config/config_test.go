package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tours")
	t.Setenv("JWT_SECRET", testSecret)

	cfg := FromEnv()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 90*24*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, 90*24*time.Hour, cfg.JWTCookieExpiresIn)
	assert.Equal(t, 10*time.Minute, cfg.PasswordResetTTL)
	assert.Equal(t, []string{"*"}, cfg.AllowOrigins)
	assert.False(t, cfg.CookieSecure)
	assert.False(t, cfg.PhotoStorageEnabled())
	assert.Equal(t, ":3000", cfg.HTTPAddress())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tours")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_EXPIRES_IN", "15m")
	t.Setenv("JWT_COOKIE_EXPIRES_IN", "7")
	t.Setenv("ALLOW_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("PUBLIC_BASE_URL", "https://api.example/")

	cfg := FromEnv()

	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, 15*time.Minute, cfg.JWTExpiresIn)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTCookieExpiresIn)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowOrigins)
	assert.Equal(t, "https://api.example", cfg.PublicBaseURL)
}

func TestFromEnvRequiresSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tours")
	t.Setenv("JWT_SECRET", "")
	assert.PanicsWithValue(t, "missing env: JWT_SECRET", func() { FromEnv() })

	t.Setenv("JWT_SECRET", "short")
	assert.Panics(t, func() { FromEnv() })
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("90d")
	require.NoError(t, err)
	assert.Equal(t, 90*24*time.Hour, d)

	d, err = ParseDuration("1h30m")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, d)

	for _, bad := range []string{"", "0d", "-5m", "xd", "soon"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}
