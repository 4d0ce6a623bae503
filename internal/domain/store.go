package domain

import (
	"context"
	"time"
)

// QuoteStore persists canonical quotes for downstream analytics.
type QuoteStore interface {
	Insert(ctx context.Context, q Quote) error
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]Quote, error)
}

// TradeStore persists canonical trade prints.
type TradeStore interface {
	InsertBatch(ctx context.Context, trades []Trade) error
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]Trade, error)
}

// DepthStore persists full depth snapshots.
type DepthStore interface {
	Insert(ctx context.Context, snap DepthSnapshot) error
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// QuoteCache holds the latest quote per venue/market for external readers
// (dashboards, analytics) that poll rather than stream.
type QuoteCache interface {
	SetQuote(ctx context.Context, q Quote) error
	GetQuote(ctx context.Context, venue, market string) (Quote, error)
}

// EventBus publishes canonical events to external subscribers by topic.
type EventBus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string) (<-chan []byte, error)
}

// BlobWriter uploads archive objects to cold storage.
type BlobWriter interface {
	Write(ctx context.Context, key string, data []byte, contentType string) error
}
