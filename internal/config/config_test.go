package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "daemon"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateRejectsUnknownTimeframe(t *testing.T) {
	cfg := Defaults()
	cfg.Council.Timeframe = "2d"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown timeframe")
}

func TestValidateRejectsBadServerPort(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg.Server.Enabled = false
	assert.NoError(t, cfg.Validate())
}

func TestValidateStandaloneSkipsBackingStores(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "standalone"
	cfg.Postgres = PostgresConfig{}
	cfg.Redis = RedisConfig{}
	assert.NoError(t, cfg.Validate())

	cfg.Mode = "council"
	assert.Error(t, cfg.Validate())
}

func TestValidateS3OnlyWhenEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.S3.Bucket = ""
	assert.NoError(t, cfg.Validate())

	cfg.S3.Enabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "standalone"
log_level = "debug"

[council]
watchlist = ["WIF", "BONK"]
timeframe = "4h"
eval_interval = "5m"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "standalone", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"WIF", "BONK"}, cfg.Council.Watchlist)
	assert.Equal(t, "4h", cfg.Council.Timeframe)
	assert.Equal(t, 5*time.Minute, cfg.Council.EvalInterval.Duration)
	// Untouched sections keep their defaults.
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Council.AgentTimeout.Duration)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[council]
eval_interval = "fifteen minutes"
`), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("COUNCIL_MODE", "serve")
	t.Setenv("COUNCIL_WATCHLIST", "DOGE, PEPE ,FLOKI")
	t.Setenv("COUNCIL_EVAL_INTERVAL", "30m")
	t.Setenv("COUNCIL_SERVER_PORT", "9090")
	t.Setenv("COUNCIL_SOCIAL_ENABLED", "false")
	t.Setenv("DATABASE_URL", "postgres://council:secret@db:5432/council")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "serve", cfg.Mode)
	assert.Equal(t, []string{"DOGE", "PEPE", "FLOKI"}, cfg.Council.Watchlist)
	assert.Equal(t, 30*time.Minute, cfg.Council.EvalInterval.Duration)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.Social.Enabled)
	assert.Equal(t, "postgres://council:secret@db:5432/council", cfg.Postgres.DSN)
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "hunter2"
	cfg.Redis.Password = "hunter2"
	cfg.S3.SecretKey = "hunter2"
	cfg.Market.CoinGeckoAPIKey = "cg-live-key"
	cfg.Server.APIKey = "api-key"

	red := RedactedConfig(&cfg)
	assert.NotContains(t, red.Postgres.Password, "hunter2")
	assert.NotContains(t, red.Redis.Password, "hunter2")
	assert.NotContains(t, red.S3.SecretKey, "hunter2")
	assert.NotContains(t, red.Market.CoinGeckoAPIKey, "cg-live")
	assert.NotContains(t, red.Server.APIKey, "api-key")
}
