package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/orayaprolu/spot-arb/internal/blob/s3"
	"github.com/orayaprolu/spot-arb/internal/cache/redis"
	"github.com/orayaprolu/spot-arb/internal/config"
	"github.com/orayaprolu/spot-arb/internal/crypto"
	"github.com/orayaprolu/spot-arb/internal/domain"
	"github.com/orayaprolu/spot-arb/internal/platform/coinex"
	"github.com/orayaprolu/spot-arb/internal/platform/mexc"
	"github.com/orayaprolu/spot-arb/internal/store/postgres"
)

// Dependencies bundles everything the application modes need to operate.
// Optional members are nil when the mode or configuration does not call for
// them.
type Dependencies struct {
	// Feeds
	CoinExFeed *coinex.Feed
	MEXCFeed   *mexc.Feed

	// Trading (trade mode only)
	Trading domain.TradingClient

	// Stores (record mode only)
	QuoteStore domain.QuoteStore
	TradeStore domain.TradeStore
	DepthStore domain.DepthStore

	// Cache and bus (when Redis is enabled)
	QuoteCache domain.QuoteCache
	EventBus   domain.EventBus

	// Cold storage (when S3 is enabled)
	BlobWriter domain.BlobWriter
}

// Wire constructs the concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	mode := strings.ToLower(cfg.Mode)
	deps := &Dependencies{
		CoinExFeed: coinex.NewFeed(cfg.CoinEx.WSURL, cfg.CoinEx.Market, logger),
		MEXCFeed:   mexc.NewFeed(cfg.MEXC.WSURL, cfg.MEXC.Market, logger),
	}

	// --- CoinEx trading client (only when orders are placed) ---
	if mode == "trade" {
		secret, err := crypto.LoadSecret(crypto.SecretConfig{
			RawSecret:     cfg.CoinEx.SecretKey,
			EncryptedPath: cfg.CoinEx.EncryptedSecretPath,
			Password:      cfg.CoinEx.SecretPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: coinex secret: %w", err)
		}
		deps.Trading = coinex.NewClient(cfg.CoinEx.BaseURL, cfg.CoinEx.AccessID, secret)
	}

	// --- PostgreSQL (only record mode persists) ---
	if mode == "record" {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.QuoteStore = postgres.NewQuoteStore(pool)
		deps.TradeStore = postgres.NewTradeStore(pool)
		deps.DepthStore = postgres.NewDepthStore(pool)
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.QuoteCache = redis.NewQuoteCache(redisClient)
		deps.EventBus = redis.NewEventBus(redisClient)
	}

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	return deps, cleanup, nil
}
