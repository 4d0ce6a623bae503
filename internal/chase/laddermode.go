package chase

import (
	"context"
	"log/slog"
	"time"

	"github.com/orayaprolu/spot-arb/internal/arb"
	"github.com/orayaprolu/spot-arb/internal/domain"
	"github.com/orayaprolu/spot-arb/internal/ladder"
)

// LadderConfig holds the price-laddering allocation parameters.
type LadderConfig struct {
	Market      string
	NotionalUSD float64
	MinEdgeBps  float64

	NumRungs    int
	SpreadWidth float64
	TaperRatio  float64

	TickInterval time.Duration
}

// LadderPlacer is the alternative allocation loop: instead of a
// visible/hidden pair at the top of book, it distributes the target size
// across several bid levels, resting for one tick, then cancelling and
// re-laddering from the fresh reference quote.
//
// When the signal clears the threshold the ladder anchors at the reference
// best bid; below threshold it anchors at the highest price that would still
// clear the threshold, so rungs rest where the edge becomes profitable.
type LadderPlacer struct {
	cfg    LadderConfig
	ref    domain.QuoteSource
	cmp    domain.QuoteSource
	client domain.TradingClient
	logger *slog.Logger
}

// NewLadderPlacer creates the laddering loop.
func NewLadderPlacer(cfg LadderConfig, ref, cmp domain.QuoteSource, client domain.TradingClient, logger *slog.Logger) *LadderPlacer {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	return &LadderPlacer{
		cfg:    cfg,
		ref:    ref,
		cmp:    cmp,
		client: client,
		logger: logger.With(
			slog.String("component", "ladder_placer"),
			slog.String("market", cfg.Market),
		),
	}
}

// Run executes place/rest/cancel cycles until ctx is cancelled.
func (l *LadderPlacer) Run(ctx context.Context) error {
	l.logger.Info("ladder placer started",
		slog.Int("rungs", l.cfg.NumRungs),
		slog.Float64("spread_width", l.cfg.SpreadWidth),
		slog.Float64("taper_ratio", l.cfg.TaperRatio),
	)

	for {
		select {
		case <-ctx.Done():
			l.cancelAll(context.WithoutCancel(ctx))
			return ctx.Err()
		case <-time.After(l.cfg.TickInterval):
		}

		if !l.cycle(ctx) {
			continue
		}

		// Let the rungs rest for one tick before pulling them.
		select {
		case <-ctx.Done():
			l.cancelAll(context.WithoutCancel(ctx))
			return ctx.Err()
		case <-time.After(l.cfg.TickInterval):
		}
		l.cancelAll(ctx)
	}
}

// cycle builds and places one ladder. It reports whether any rung was
// placed.
func (l *LadderPlacer) cycle(ctx context.Context) bool {
	refQuote, refOK := l.ref.LatestQuote()
	cmpQuote, cmpOK := l.cmp.LatestQuote()
	if !refOK || !cmpOK {
		l.logger.Debug("awaiting quotes")
		return false
	}

	refBid := refQuote.BestBidPrice
	signal, err := arb.DifferenceInBps(refBid, cmpQuote.BestBidPrice)
	if err != nil {
		l.logger.Warn("signal unavailable", slog.String("error", err.Error()))
		return false
	}

	anchor := refBid
	if signal <= l.cfg.MinEdgeBps {
		anchor = refBid * (1 - l.cfg.MinEdgeBps/10_000)
	}

	amount := l.cfg.NotionalUSD / refBid
	rungs, err := ladder.Build(anchor, amount, l.cfg.NumRungs, l.cfg.SpreadWidth, l.cfg.TaperRatio)
	if err != nil {
		l.logger.Error("ladder build failed", slog.String("error", err.Error()))
		return false
	}

	placed := false
	for _, rung := range rungs {
		if _, err := l.client.PlaceOrder(ctx, l.cfg.Market, domain.OrderSideBuy, rung.Size, rung.Price, false); err != nil {
			l.logger.Warn("rung placement failed",
				slog.Float64("price", rung.Price),
				slog.Float64("size", rung.Size),
				slog.String("error", err.Error()),
			)
			continue
		}
		placed = true
	}

	l.logger.Info("ladder placed",
		slog.Float64("anchor", anchor),
		slog.Float64("signal_bps", signal),
		slog.Int("rungs", len(rungs)),
	)
	return placed
}

func (l *LadderPlacer) cancelAll(ctx context.Context) {
	if err := l.client.CancelAllOrders(ctx, l.cfg.Market); err != nil {
		l.logger.Warn("cancel all failed", slog.String("error", err.Error()))
	}
}
