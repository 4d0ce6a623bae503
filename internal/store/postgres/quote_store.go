package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orayaprolu/spot-arb/internal/domain"
)

// QuoteStore implements domain.QuoteStore using PostgreSQL.
type QuoteStore struct {
	pool *pgxpool.Pool
}

// NewQuoteStore creates a new QuoteStore backed by the given connection pool.
func NewQuoteStore(pool *pgxpool.Pool) *QuoteStore {
	return &QuoteStore{pool: pool}
}

const quoteSelectCols = `timestamp, venue, market, bid_price, bid_size, ask_price, ask_size`

func scanQuoteRows(rows pgx.Rows) ([]domain.Quote, error) {
	var quotes []domain.Quote
	for rows.Next() {
		var q domain.Quote
		if err := rows.Scan(
			&q.Timestamp, &q.Venue, &q.Market,
			&q.BestBidPrice, &q.BestBidSize,
			&q.BestAskPrice, &q.BestAskSize,
		); err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// Insert stores one quote sample.
func (s *QuoteStore) Insert(ctx context.Context, q domain.Quote) error {
	const query = `
		INSERT INTO quotes (timestamp, venue, market, bid_price, bid_size, ask_price, ask_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		q.Timestamp, q.Venue, q.Market,
		q.BestBidPrice, q.BestBidSize,
		q.BestAskPrice, q.BestAskSize,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert quote: %w", err)
	}
	return nil
}

// ListBefore returns up to limit quotes older than cutoff, oldest first.
// Ties on timestamp are broken by insert order so paging is deterministic.
// A non-positive limit returns all matching rows.
func (s *QuoteStore) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Quote, error) {
	query := `SELECT ` + quoteSelectCols + ` FROM quotes WHERE timestamp < $1 ORDER BY timestamp ASC, id ASC`
	args := []any{cutoff}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list quotes before: %w", err)
	}
	defer rows.Close()

	quotes, err := scanQuoteRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan quotes before: %w", err)
	}
	return quotes, nil
}

// DeleteBefore deletes all quotes older than cutoff. Returns the number deleted.
func (s *QuoteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quotes WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete quotes before: %w", err)
	}
	return tag.RowsAffected(), nil
}
