package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orayaprolu/spot-arb/internal/domain"
)

// DepthStore implements domain.DepthStore using PostgreSQL. Bid and ask
// ladders are stored as JSONB arrays of [price, size] pairs.
type DepthStore struct {
	pool *pgxpool.Pool
}

// NewDepthStore creates a new DepthStore backed by the given connection pool.
func NewDepthStore(pool *pgxpool.Pool) *DepthStore {
	return &DepthStore{pool: pool}
}

func marshalLevels(levels []domain.PriceLevel) ([]byte, error) {
	pairs := make([][2]float64, len(levels))
	for i, lvl := range levels {
		pairs[i] = [2]float64{lvl.Price, lvl.Size}
	}
	return json.Marshal(pairs)
}

// Insert stores one full depth snapshot.
func (s *DepthStore) Insert(ctx context.Context, snap domain.DepthSnapshot) error {
	bids, err := marshalLevels(snap.Bids)
	if err != nil {
		return fmt.Errorf("postgres: marshal bids: %w", err)
	}
	asks, err := marshalLevels(snap.Asks)
	if err != nil {
		return fmt.Errorf("postgres: marshal asks: %w", err)
	}

	const query = `
		INSERT INTO depth_snapshots (timestamp, venue, market, bids, asks)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := s.pool.Exec(ctx, query, snap.Timestamp, snap.Venue, snap.Market, bids, asks); err != nil {
		return fmt.Errorf("postgres: insert depth snapshot: %w", err)
	}
	return nil
}

// DeleteBefore deletes all snapshots older than cutoff. Returns the number deleted.
func (s *DepthStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM depth_snapshots WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete depth snapshots before: %w", err)
	}
	return tag.RowsAffected(), nil
}
