package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "record"

[strategy]
notional_usd = 250.0
tick_interval = "2s"

[postgres]
database = "capture"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "record" {
		t.Errorf("Mode = %q", cfg.Mode)
	}
	if cfg.Strategy.NotionalUSD != 250 {
		t.Errorf("NotionalUSD = %v", cfg.Strategy.NotionalUSD)
	}
	if cfg.Strategy.TickInterval.Duration != 2*time.Second {
		t.Errorf("TickInterval = %v", cfg.Strategy.TickInterval.Duration)
	}
	if cfg.Postgres.Database != "capture" {
		t.Errorf("Database = %q", cfg.Postgres.Database)
	}

	// Untouched fields keep their defaults.
	if cfg.CoinEx.WSURL != "wss://socket.coinex.com/v2/spot" {
		t.Errorf("CoinEx WSURL = %q", cfg.CoinEx.WSURL)
	}
	if cfg.Feed.RetryCooldown.Duration != 2*time.Minute {
		t.Errorf("RetryCooldown = %v", cfg.Feed.RetryCooldown.Duration)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("SPOTARB_MODE", "trade")
	t.Setenv("SPOTARB_COINEX_ACCESS_ID", "env-access")
	t.Setenv("SPOTARB_STRATEGY_MIN_EDGE_BPS", "35.5")
	t.Setenv("SPOTARB_FEED_WATCHDOG_UPTIME", "30m")

	path := writeConfig(t, `
mode = "monitor"

[coinex]
access_id = "file-access"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "trade" {
		t.Errorf("Mode = %q, env override lost", cfg.Mode)
	}
	if cfg.CoinEx.AccessID != "env-access" {
		t.Errorf("AccessID = %q", cfg.CoinEx.AccessID)
	}
	if cfg.Strategy.MinEdgeBps != 35.5 {
		t.Errorf("MinEdgeBps = %v", cfg.Strategy.MinEdgeBps)
	}
	if cfg.Feed.WatchdogUptime.Duration != 30*time.Minute {
		t.Errorf("WatchdogUptime = %v", cfg.Feed.WatchdogUptime.Duration)
	}
}

func TestValidateTradeModeRequiresCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate passed without credentials")
	}
	if !strings.Contains(err.Error(), "access_id") {
		t.Errorf("error does not mention access_id: %v", err)
	}

	cfg.CoinEx.AccessID = "id"
	cfg.CoinEx.SecretKey = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate with credentials: %v", err)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "replay"
	cfg.LogLevel = "verbose"
	cfg.Strategy.NotionalUSD = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate passed")
	}
	for _, want := range []string{"mode", "log_level", "notional_usd"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestValidateLadderAllocation(t *testing.T) {
	cfg := Defaults()
	cfg.Strategy.Allocation = "ladder"
	cfg.Ladder.NumRungs = 1
	cfg.Ladder.SpreadWidth = 1.5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate passed with broken ladder config")
	}
	if !strings.Contains(err.Error(), "num_rungs") || !strings.Contains(err.Error(), "spread_width") {
		t.Errorf("error = %v", err)
	}
}

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.CoinEx.SecretKey = "supersecret"
	cfg.Postgres.Password = "dbpass"
	cfg.S3.SecretKey = "s3secret"

	red := RedactedConfig(&cfg)

	if red.CoinEx.SecretKey != "***" || red.Postgres.Password != "***" || red.S3.SecretKey != "***" {
		t.Errorf("secrets not redacted: %+v", red)
	}
	if cfg.CoinEx.SecretKey != "supersecret" {
		t.Error("original config mutated")
	}
	if red.CoinEx.AccessID != cfg.CoinEx.AccessID {
		t.Error("non-secret field changed")
	}
}
