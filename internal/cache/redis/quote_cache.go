package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/orayaprolu/spot-arb/internal/domain"
)

const quoteTTL = 5 * time.Minute

// QuoteCache implements domain.QuoteCache using Redis hashes with
// JSON-serialized quote data, one key per venue/market pair.
//
// Key schema:
//
//	quote:{venue}:{market} - hash with field "data" containing JSON
type QuoteCache struct {
	rdb *redis.Client
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying()}
}

func quoteKey(venue, market string) string { return "quote:" + venue + ":" + market }

// SetQuote stores the latest quote for its venue/market pair with a
// 5-minute TTL, so a stalled feed ages out instead of serving stale prices.
func (c *QuoteCache) SetQuote(ctx context.Context, q domain.Quote) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("redis: marshal quote %s/%s: %w", q.Venue, q.Market, err)
	}

	key := quoteKey(q.Venue, q.Market)

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, quoteTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s/%s: %w", q.Venue, q.Market, err)
	}
	return nil
}

// GetQuote retrieves the latest quote for a venue/market pair.
// It returns domain.ErrNotFound when no quote is cached.
func (c *QuoteCache) GetQuote(ctx context.Context, venue, market string) (domain.Quote, error) {
	data, err := c.rdb.HGet(ctx, quoteKey(venue, market), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Quote{}, domain.ErrNotFound
		}
		return domain.Quote{}, fmt.Errorf("redis: get quote %s/%s: %w", venue, market, err)
	}

	var q domain.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return domain.Quote{}, fmt.Errorf("redis: unmarshal quote %s/%s: %w", venue, market, err)
	}
	return q, nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
