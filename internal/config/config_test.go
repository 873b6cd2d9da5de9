package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_CONNECTION_STRING", "postgres://localhost/fleet")
	t.Setenv("SYNC_API_TOKEN", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 3, cfg.Remote.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Remote.RetryDelay)
	assert.Equal(t, time.Hour, cfg.Sync.Interval)
	assert.True(t, cfg.Sync.AutoSyncEnabled)
	assert.Equal(t, 50, cfg.Sync.BatchSize)
	assert.Equal(t, 64, cfg.Sync.EventBuffer)
	assert.Zero(t, cfg.Sync.Batch().BatchDelay)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ONBOARDING_API_URL", "https://onboarding.example.com")
	t.Setenv("ONBOARDING_API_KEY", "key-123")
	t.Setenv("ONBOARDING_MAX_RETRIES", "5")
	t.Setenv("SYNC_INTERVAL", "15m")
	t.Setenv("SYNC_BATCH_SIZE", "10")
	t.Setenv("SYNC_BATCH_DELAY", "250ms")
	t.Setenv("SYNC_AUTO_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://onboarding.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, "key-123", cfg.Remote.APIKey)
	assert.Equal(t, 5, cfg.Remote.MaxRetries)
	assert.Equal(t, 15*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 10, cfg.Sync.Batch().Size)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.Batch().BatchDelay)
	assert.False(t, cfg.Sync.AutoSyncEnabled)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("SYNC_INTERVAL", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Sync: *DefaultSyncConfig(), Remote: *DefaultRemoteConfig()}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_CONNECTION_STRING")
	assert.Contains(t, err.Error(), "SYNC_API_TOKEN")

	cfg.DBConnectionString = "postgres://localhost/fleet"
	cfg.APIToken = "secret"
	cfg.Sync.BatchSize = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SYNC_BATCH_SIZE")

	cfg.Sync.BatchSize = 10
	cfg.Sync.BatchDelay = -time.Second
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SYNC_BATCH_DELAY")
}
