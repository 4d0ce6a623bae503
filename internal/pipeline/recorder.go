// Package pipeline contains the capture-side loops: the recorder that
// persists canonical feed events and the archiver that moves aged rows to
// cold storage.
package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/orayaprolu/spot-arb/internal/domain"
)

// Pub/Sub topics the recorder publishes canonical events on.
const (
	TopicQuotes = "md.quotes"
	TopicTrades = "md.trades"
)

// DefaultFlushInterval is the trade batch flush cadence.
const DefaultFlushInterval = 5 * time.Second

// Recorder drains a streaming feed's event channels into the stores and
// fans the same events out to the cache and event bus. Store failures are
// logged and skipped; the recorder never stops the feed.
type Recorder struct {
	feed   domain.StreamingFeed
	quotes domain.QuoteStore
	trades domain.TradeStore
	depth  domain.DepthStore
	cache  domain.QuoteCache
	bus    domain.EventBus
	logger *slog.Logger

	flushInterval time.Duration
	pending       []domain.Trade
}

// NewRecorder creates a recorder draining feed into the given stores.
// cache and bus may be nil, in which case fan-out is skipped.
func NewRecorder(
	feed domain.StreamingFeed,
	quotes domain.QuoteStore,
	trades domain.TradeStore,
	depth domain.DepthStore,
	cache domain.QuoteCache,
	bus domain.EventBus,
	logger *slog.Logger,
) *Recorder {
	return &Recorder{
		feed:          feed,
		quotes:        quotes,
		trades:        trades,
		depth:         depth,
		cache:         cache,
		bus:           bus,
		logger:        logger.With(slog.String("component", "recorder")),
		flushInterval: DefaultFlushInterval,
	}
}

// Run drains the feed's channels until ctx is cancelled, flushing any
// buffered trades on the way out.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	r.logger.Info("recorder started", slog.String("venue", r.feed.Venue()))

	for {
		select {
		case <-ctx.Done():
			r.flushTrades(context.WithoutCancel(ctx))
			return ctx.Err()

		case q := <-r.feed.Quotes():
			r.handleQuote(ctx, q)

		case t := <-r.feed.Trades():
			r.handleTrade(ctx, t)

		case snap := <-r.feed.Depth():
			if err := r.depth.Insert(ctx, snap); err != nil {
				r.logger.Warn("depth insert failed", slog.String("error", err.Error()))
			}

		case <-ticker.C:
			r.flushTrades(ctx)
		}
	}
}

func (r *Recorder) handleQuote(ctx context.Context, q domain.Quote) {
	if err := r.quotes.Insert(ctx, q); err != nil {
		r.logger.Warn("quote insert failed", slog.String("error", err.Error()))
	}
	if r.cache != nil {
		if err := r.cache.SetQuote(ctx, q); err != nil {
			r.logger.Warn("quote cache set failed", slog.String("error", err.Error()))
		}
	}
	r.publish(ctx, TopicQuotes, q)
}

func (r *Recorder) handleTrade(ctx context.Context, t domain.Trade) {
	r.pending = append(r.pending, t)
	r.publish(ctx, TopicTrades, t)
}

// flushTrades writes the buffered trades in one batch. The buffer is kept
// on failure and retried at the next flush.
func (r *Recorder) flushTrades(ctx context.Context) {
	if len(r.pending) == 0 {
		return
	}
	if err := r.trades.InsertBatch(ctx, r.pending); err != nil {
		r.logger.Warn("trade batch insert failed",
			slog.Int("count", len(r.pending)),
			slog.String("error", err.Error()),
		)
		return
	}
	r.logger.Debug("trade batch flushed", slog.Int("count", len(r.pending)))
	r.pending = r.pending[:0]
}

func (r *Recorder) publish(ctx context.Context, topic string, event any) {
	if r.bus == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.Warn("event marshal failed", slog.String("topic", topic), slog.String("error", err.Error()))
		return
	}
	if err := r.bus.Publish(ctx, topic, payload); err != nil {
		r.logger.Warn("event publish failed", slog.String("topic", topic), slog.String("error", err.Error()))
	}
}
