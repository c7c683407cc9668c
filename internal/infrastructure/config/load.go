package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML config file, applies environment overrides and fills
// defaults. A missing file is not an error; defaults plus environment are
// enough for degraded operation.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to defaults
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	if err := parseDurations(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	return &cfg, nil
}

func parseDurations(cfg *Config) error {
	fields := []struct {
		raw  string
		dst  *time.Duration
		name string
	}{
		{cfg.Server.ReadTimeoutStr, &cfg.Server.ReadTimeout, "server.read_timeout"},
		{cfg.Server.WriteTimeoutStr, &cfg.Server.WriteTimeout, "server.write_timeout"},
		{cfg.Server.ShutdownTimeoutStr, &cfg.Server.ShutdownTimeout, "server.shutdown_timeout"},
		{cfg.Cache.TTLStr, &cfg.Cache.TTL, "cache.ttl"},
		{cfg.Oracle.AttemptTimeoutStr, &cfg.Oracle.AttemptTimeout, "oracle.attempt_timeout"},
		{cfg.Oracle.RetryBackoffStr, &cfg.Oracle.RetryBackoff, "oracle.retry_backoff"},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %w", f.name, err)
		}
		*f.dst = d
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		cfg.Postgres.Database = v
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}

	if v := os.Getenv("ORACLE_WORKSPACE_PATH"); v != "" {
		cfg.Oracle.WorkspacePath = v
	}
	if v := os.Getenv("CLI_PATH"); v != "" {
		cfg.Oracle.CLIPath = v
	}
	if v := os.Getenv("ORACLE_NETWORK"); v != "" {
		cfg.Oracle.Network = v
	}

	if v := os.Getenv("PRAGMA_API_BASE_URL"); v != "" {
		cfg.Pragma.BaseURL = v
	}
	if v := os.Getenv("PRAGMA_API_KEY"); v != "" {
		cfg.Pragma.APIKey = v
	}
	if v := os.Getenv("PRAGMA_NETWORK"); v != "" {
		cfg.Pragma.Network = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = "localhost"
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = 5432
	}
	if cfg.Postgres.User == "" {
		cfg.Postgres.User = "oracleflow"
	}
	if cfg.Postgres.Database == "" {
		cfg.Postgres.Database = "oracleflow"
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 10 * time.Second
	}

	if cfg.Oracle.Network == "" {
		cfg.Oracle.Network = "testnet"
	}
	if cfg.Oracle.AttemptTimeout == 0 {
		cfg.Oracle.AttemptTimeout = 30 * time.Second
	}
	if cfg.Oracle.MaxAttempts == 0 {
		cfg.Oracle.MaxAttempts = 3
	}
	if cfg.Oracle.RetryBackoff == 0 {
		cfg.Oracle.RetryBackoff = time.Second
	}

	if cfg.Pragma.BaseURL == "" {
		cfg.Pragma.BaseURL = "https://api.production.pragma.build/node/v1/onchain/history"
	}
	if cfg.Pragma.Network == "" {
		cfg.Pragma.Network = "starknet-mainnet"
	}

	if cfg.History.WindowSeconds == 0 {
		cfg.History.WindowSeconds = 24 * 60 * 60
	}
	if cfg.History.BucketSeconds == 0 {
		cfg.History.BucketSeconds = 30 * 60
	}
	if cfg.History.MinRequiredPoints == 0 {
		cfg.History.MinRequiredPoints = 10
	}

	if cfg.Retention.MaxAgeHours == 0 {
		cfg.Retention.MaxAgeHours = 48
	}
	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = "@hourly"
	}

	if len(cfg.Pairs) == 0 {
		cfg.Pairs = defaultPairs()
	}
}

func defaultPairs() []PairConfig {
	return []PairConfig{
		{Pair: "BTC/USD", Name: "Bitcoin", MarketCap: 1_280_000_000_000, StatsExchange: "binance", ExchangeSymbol: "BTCUSDT", FullHistory: true},
		{Pair: "ETH/USD", Name: "Ethereum", MarketCap: 390_000_000_000, StatsExchange: "binance", ExchangeSymbol: "ETHUSDT", FullHistory: true},
		{Pair: "SOL/USD", Name: "Solana", MarketCap: 78_000_000_000, StatsExchange: "binance", ExchangeSymbol: "SOLUSDT"},
	}
}
