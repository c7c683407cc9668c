package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 3, cfg.Oracle.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Oracle.RetryBackoff)
	assert.Equal(t, 30*time.Second, cfg.Oracle.AttemptTimeout)
	assert.Equal(t, int64(86400), cfg.History.WindowSeconds)
	assert.Equal(t, int64(1800), cfg.History.BucketSeconds)
	assert.Equal(t, 10, cfg.History.MinRequiredPoints)
	assert.Equal(t, 48, cfg.Retention.MaxAgeHours)
	assert.Equal(t, "@hourly", cfg.Retention.Schedule)
	require.Len(t, cfg.Pairs, 3)
	assert.Equal(t, []string{"BTC/USD", "ETH/USD"}, cfg.FullHistoryPairs())
}

func TestLoad_ParsesDurationsAndPairs(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  read_timeout: 5s
cache:
  ttl: 30s
oracle:
  retry_backoff: 250ms
pairs:
  - pair: HYPE/USD
    name: Hyperliquid
    stats_exchange: bybit
    exchange_symbol: HYPEUSDT
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 250*time.Millisecond, cfg.Oracle.RetryBackoff)
	require.Len(t, cfg.Pairs, 1)
	assert.Equal(t, []string{"HYPE/USD"}, cfg.TrackedPairs())
	assert.Empty(t, cfg.FullHistoryPairs())
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "cache:\n  ttl: soon\n")

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.ttl")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("PRAGMA_API_KEY", "secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "secret", cfg.Pragma.APIKey)
}

func TestPostgresDSN(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t,
		"host=localhost port=5432 user=oracleflow password= dbname=oracleflow sslmode=disable",
		cfg.PostgresDSN())
}
