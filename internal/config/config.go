// Package config defines the top-level configuration for the spot
// arbitrage bot and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SPOTARB_* environment
// variables.
type Config struct {
	CoinEx   CoinExConfig   `toml:"coinex"`
	MEXC     MEXCConfig     `toml:"mexc"`
	Strategy StrategyConfig `toml:"strategy"`
	Ladder   LadderConfig   `toml:"ladder"`
	Feed     FeedConfig     `toml:"feed"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// CoinExConfig holds CoinEx endpoints and API credentials. The secret key
// may be given in clear, or as a path to an encrypted key file plus its
// password.
type CoinExConfig struct {
	WSURL               string `toml:"ws_url"`
	BaseURL             string `toml:"base_url"`
	Market              string `toml:"market"`
	AccessID            string `toml:"access_id"`
	SecretKey           string `toml:"secret_key"`
	EncryptedSecretPath string `toml:"encrypted_secret_path"`
	SecretPassword      string `toml:"secret_password"`
}

// MEXCConfig holds MEXC endpoints.
type MEXCConfig struct {
	WSURL  string `toml:"ws_url"`
	Market string `toml:"market"`
}

// StrategyConfig holds the order-chasing parameters.
type StrategyConfig struct {
	// Allocation selects how the notional rests on the book: "pair" for the
	// visible/hidden clip pair, "ladder" for the multi-rung allocator.
	Allocation string `toml:"allocation"`

	NotionalUSD  float64  `toml:"notional_usd"`
	MinEdgeBps   float64  `toml:"min_edge_bps"`
	HiddenRatio  float64  `toml:"hidden_ratio"`
	TickInterval duration `toml:"tick_interval"`
}

// LadderConfig holds the multi-rung allocation parameters, used when
// strategy.allocation is "ladder".
type LadderConfig struct {
	NumRungs    int     `toml:"num_rungs"`
	SpreadWidth float64 `toml:"spread_width"`
	TaperRatio  float64 `toml:"taper_ratio"`
}

// FeedConfig holds the feed supervision parameters.
type FeedConfig struct {
	// RetryCooldown is the pause between supervisor restarts after a fatal
	// feed error.
	RetryCooldown duration `toml:"retry_cooldown"`

	// WatchdogUptime bounds total process uptime; zero disables the
	// watchdog.
	WatchdogUptime duration `toml:"watchdog_uptime"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis is optional; when
// disabled the recorder skips the cache and event bus fan-out.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters. S3 is optional;
// when disabled aged rows are pruned without export.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// PipelineConfig holds the recorder and archiver parameters.
type PipelineConfig struct {
	ArchiveRetention duration `toml:"archive_retention"`
	ArchiveInterval  duration `toml:"archive_interval"`
}

// duration wraps time.Duration so TOML values like "90s" decode directly.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with sensible defaults for every
// field that has one. Load starts from these before applying the TOML file
// and environment overrides.
func Defaults() Config {
	return Config{
		CoinEx: CoinExConfig{
			WSURL:   "wss://socket.coinex.com/v2/spot",
			BaseURL: "https://api.coinex.com",
			Market:  "XEC-USDT",
		},
		MEXC: MEXCConfig{
			WSURL:  "wss://wbs-api.mexc.com/ws",
			Market: "XEC-USDT",
		},
		Strategy: StrategyConfig{
			Allocation:   "pair",
			NotionalUSD:  100,
			MinEdgeBps:   20,
			HiddenRatio:  3,
			TickInterval: duration{time.Second},
		},
		Ladder: LadderConfig{
			NumRungs:    5,
			SpreadWidth: 0.03,
			TaperRatio:  1.0,
		},
		Feed: FeedConfig{
			RetryCooldown:  duration{2 * time.Minute},
			WatchdogUptime: duration{time.Hour},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "spotarb",
			User:          "spotarb",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Pipeline: PipelineConfig{
			ArchiveRetention: duration{30 * 24 * time.Hour},
			ArchiveInterval:  duration{24 * time.Hour},
		},
		Mode:     "monitor",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
	"record":  true,
	"monitor": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validAllocations enumerates the accepted values for
// StrategyConfig.Allocation.
var validAllocations = map[string]bool{
	"pair":   true,
	"ladder": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, record, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.CoinEx.Market == "" {
		errs = append(errs, "coinex: market must not be empty")
	}
	if c.CoinEx.WSURL == "" {
		errs = append(errs, "coinex: ws_url must not be empty")
	}
	if c.MEXC.Market == "" {
		errs = append(errs, "mexc: market must not be empty")
	}
	if c.MEXC.WSURL == "" {
		errs = append(errs, "mexc: ws_url must not be empty")
	}

	// Trading credentials are only required when orders are actually placed.
	if strings.ToLower(c.Mode) == "trade" {
		if c.CoinEx.AccessID == "" {
			errs = append(errs, "coinex: access_id is required for trade mode")
		}
		if c.CoinEx.SecretKey == "" && c.CoinEx.EncryptedSecretPath == "" {
			errs = append(errs, "coinex: either secret_key or encrypted_secret_path must be set for trade mode")
		}
		if c.CoinEx.EncryptedSecretPath != "" && c.CoinEx.SecretPassword == "" {
			errs = append(errs, "coinex: secret_password is required when encrypted_secret_path is set")
		}
	}

	if !validAllocations[strings.ToLower(c.Strategy.Allocation)] {
		errs = append(errs, fmt.Sprintf("strategy: unknown allocation %q (valid: pair, ladder)", c.Strategy.Allocation))
	}
	if c.Strategy.NotionalUSD <= 0 {
		errs = append(errs, "strategy: notional_usd must be > 0")
	}
	if c.Strategy.MinEdgeBps <= 0 {
		errs = append(errs, "strategy: min_edge_bps must be > 0")
	}
	if c.Strategy.HiddenRatio < 0 {
		errs = append(errs, "strategy: hidden_ratio must be >= 0")
	}

	if strings.ToLower(c.Strategy.Allocation) == "ladder" {
		if c.Ladder.NumRungs < 2 {
			errs = append(errs, "ladder: num_rungs must be >= 2")
		}
		if c.Ladder.SpreadWidth <= 0 || c.Ladder.SpreadWidth >= 1 {
			errs = append(errs, "ladder: spread_width must be in (0, 1)")
		}
		if c.Ladder.TaperRatio <= 0 {
			errs = append(errs, "ladder: taper_ratio must be > 0")
		}
	}

	// Record mode persists to Postgres; the other modes never touch it.
	if strings.ToLower(c.Mode) == "record" {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1 when enabled")
		}
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
		if c.Pipeline.ArchiveRetention.Duration <= 0 {
			errs = append(errs, "pipeline: archive_retention must be > 0 when s3 is enabled")
		}
		if c.Pipeline.ArchiveInterval.Duration <= 0 {
			errs = append(errs, "pipeline: archive_interval must be > 0 when s3 is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
