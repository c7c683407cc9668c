package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgresql"`
	Cache     CacheConfig     `yaml:"cache"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Pragma    PragmaConfig    `yaml:"pragma"`
	History   HistoryConfig   `yaml:"history"`
	Retention RetentionConfig `yaml:"retention"`
	Pairs     []PairConfig    `yaml:"pairs"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port               int    `yaml:"port"`
	ReadTimeoutStr     string `yaml:"read_timeout"`
	WriteTimeoutStr    string `yaml:"write_timeout"`
	ShutdownTimeoutStr string `yaml:"shutdown_timeout"`

	ReadTimeout     time.Duration `yaml:"-"`
	WriteTimeout    time.Duration `yaml:"-"`
	ShutdownTimeout time.Duration `yaml:"-"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// CacheConfig selects the snapshot cache backend. An empty RedisAddr keeps
// the in-process cache, which is cold on every restart.
type CacheConfig struct {
	TTLStr        string `yaml:"ttl"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	TTL time.Duration `yaml:"-"`
}

// OracleConfig drives the external median CLI invocation.
type OracleConfig struct {
	WorkspacePath     string `yaml:"workspace_path"`
	CLIPath           string `yaml:"cli_path"`
	Network           string `yaml:"network"`
	AttemptTimeoutStr string `yaml:"attempt_timeout"`
	MaxAttempts       int    `yaml:"max_attempts"`
	RetryBackoffStr   string `yaml:"retry_backoff"`

	AttemptTimeout time.Duration `yaml:"-"`
	RetryBackoff   time.Duration `yaml:"-"`
}

// PragmaConfig points at the authoritative history API. An empty APIKey
// disables startup seeding; it is not fatal.
type PragmaConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Network string `yaml:"network"`
}

type HistoryConfig struct {
	WindowSeconds     int64 `yaml:"window_seconds"`
	BucketSeconds     int64 `yaml:"bucket_seconds"`
	MinRequiredPoints int   `yaml:"min_required_points"`
}

type RetentionConfig struct {
	MaxAgeHours int    `yaml:"max_age_hours"`
	Schedule    string `yaml:"schedule"`
}

// PairConfig describes one tracked trading pair. StatsExchange routes the
// reference-stats lookup ("binance" or "bybit"); FullHistory marks pairs the
// authoritative history provider covers end to end.
type PairConfig struct {
	Pair           string  `yaml:"pair"`
	Name           string  `yaml:"name"`
	MarketCap      float64 `yaml:"market_cap"`
	StatsExchange  string  `yaml:"stats_exchange"`
	ExchangeSymbol string  `yaml:"exchange_symbol"`
	FullHistory    bool    `yaml:"full_history"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host, c.Postgres.Port, c.Postgres.User,
		c.Postgres.Password, c.Postgres.Database, c.Postgres.SSLMode,
	)
}

// TrackedPairs returns the pair identifiers in configured order.
func (c *Config) TrackedPairs() []string {
	pairs := make([]string, 0, len(c.Pairs))
	for _, p := range c.Pairs {
		pairs = append(pairs, p.Pair)
	}
	return pairs
}

// FullHistoryPairs returns pairs designated as fully tracked by the
// authoritative provider.
func (c *Config) FullHistoryPairs() []string {
	var pairs []string
	for _, p := range c.Pairs {
		if p.FullHistory {
			pairs = append(pairs, p.Pair)
		}
	}
	return pairs
}
