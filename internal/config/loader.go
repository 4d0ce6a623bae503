package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SPOTARB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SPOTARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── CoinEx ──
	setStr(&cfg.CoinEx.WSURL, "SPOTARB_COINEX_WS_URL")
	setStr(&cfg.CoinEx.BaseURL, "SPOTARB_COINEX_BASE_URL")
	setStr(&cfg.CoinEx.Market, "SPOTARB_COINEX_MARKET")
	setStr(&cfg.CoinEx.AccessID, "SPOTARB_COINEX_ACCESS_ID")
	setStr(&cfg.CoinEx.SecretKey, "SPOTARB_COINEX_SECRET_KEY")
	setStr(&cfg.CoinEx.EncryptedSecretPath, "SPOTARB_COINEX_ENCRYPTED_SECRET_PATH")
	setStr(&cfg.CoinEx.SecretPassword, "SPOTARB_COINEX_SECRET_PASSWORD")

	// ── MEXC ──
	setStr(&cfg.MEXC.WSURL, "SPOTARB_MEXC_WS_URL")
	setStr(&cfg.MEXC.Market, "SPOTARB_MEXC_MARKET")

	// ── Strategy ──
	setStr(&cfg.Strategy.Allocation, "SPOTARB_STRATEGY_ALLOCATION")
	setFloat64(&cfg.Strategy.NotionalUSD, "SPOTARB_STRATEGY_NOTIONAL_USD")
	setFloat64(&cfg.Strategy.MinEdgeBps, "SPOTARB_STRATEGY_MIN_EDGE_BPS")
	setFloat64(&cfg.Strategy.HiddenRatio, "SPOTARB_STRATEGY_HIDDEN_RATIO")
	setDuration(&cfg.Strategy.TickInterval, "SPOTARB_STRATEGY_TICK_INTERVAL")

	// ── Ladder ──
	setInt(&cfg.Ladder.NumRungs, "SPOTARB_LADDER_NUM_RUNGS")
	setFloat64(&cfg.Ladder.SpreadWidth, "SPOTARB_LADDER_SPREAD_WIDTH")
	setFloat64(&cfg.Ladder.TaperRatio, "SPOTARB_LADDER_TAPER_RATIO")

	// ── Feed ──
	setDuration(&cfg.Feed.RetryCooldown, "SPOTARB_FEED_RETRY_COOLDOWN")
	setDuration(&cfg.Feed.WatchdogUptime, "SPOTARB_FEED_WATCHDOG_UPTIME")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "SPOTARB_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SPOTARB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SPOTARB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SPOTARB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SPOTARB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SPOTARB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SPOTARB_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SPOTARB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SPOTARB_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SPOTARB_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SPOTARB_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SPOTARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SPOTARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SPOTARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SPOTARB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SPOTARB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SPOTARB_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "SPOTARB_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SPOTARB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SPOTARB_S3_REGION")
	setStr(&cfg.S3.Bucket, "SPOTARB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SPOTARB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SPOTARB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SPOTARB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SPOTARB_S3_FORCE_PATH_STYLE")

	// ── Pipeline ──
	setDuration(&cfg.Pipeline.ArchiveRetention, "SPOTARB_PIPELINE_ARCHIVE_RETENTION")
	setDuration(&cfg.Pipeline.ArchiveInterval, "SPOTARB_PIPELINE_ARCHIVE_INTERVAL")

	// ── Top-level ──
	setStr(&cfg.Mode, "SPOTARB_MODE")
	setStr(&cfg.LogLevel, "SPOTARB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
