package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_EXPIRY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Tracker.FlushThreshold)
	assert.Equal(t, time.Hour, cfg.Tracker.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.Tracker.SweepInterval)
	assert.Equal(t, time.Hour, cfg.JWTExpiry)
	assert.Equal(t, DefaultAuthPerHour, cfg.RateLimit.AuthPerHour)
}

func TestLoadFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policyguard.yaml")
	data := []byte("tracker:\n  session_ttl: 30m\n  sweep_interval: 10s\nratelimit:\n  auth_per_hour: 7\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("JWT_EXPIRY", "60")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Tracker.FlushThreshold, "unset keys keep defaults")
	assert.Equal(t, 30*time.Minute, cfg.Tracker.SessionTTL)
	assert.Equal(t, 10*time.Second, cfg.Tracker.SweepInterval)
	assert.Equal(t, 7, cfg.RateLimit.AuthPerHour)
	assert.Equal(t, time.Minute, cfg.JWTExpiry)
}

func TestLoadBadExpiry(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_EXPIRY", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("JWT_EXPIRY", "")
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}
