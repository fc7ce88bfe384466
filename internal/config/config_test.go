package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SIGNIN_MAX_ATTEMPTS", "")
	t.Setenv("SIGNUP_MAX_ATTEMPTS", "")
	t.Setenv("RATE_LIMIT_WINDOW_MINUTES", "")
	t.Setenv("DEV_MODE", "")

	cfg := Load()

	assert.Equal(t, 5, cfg.SigninMaxAttempts)
	assert.Equal(t, 3, cfg.SignupMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 30*time.Minute, cfg.LockoutDuration)
	assert.False(t, cfg.DevMode)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SIGNIN_MAX_ATTEMPTS", "7")
	t.Setenv("LOCKOUT_MINUTES", "5")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("PHOTO_STORAGE", "sftp")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 7, cfg.SigninMaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.LockoutDuration)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "sftp", cfg.PhotoStorage)
}

func TestGetenvInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	assert.Equal(t, 42, getenvInt("SOME_INT", 42))
}
