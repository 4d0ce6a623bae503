// Package chase keeps resting buy orders aligned with a moving reference
// price while a cross-venue arbitrage signal stays above a minimum
// profitability threshold.
package chase

import (
	"context"
	"log/slog"
	"time"

	"github.com/orayaprolu/spot-arb/internal/arb"
	"github.com/orayaprolu/spot-arb/internal/domain"
)

// State is the chaser's position in its order lifecycle for one market.
type State string

const (
	// StateAwaitingQuotes holds until both venues have delivered a quote.
	StateAwaitingQuotes State = "awaiting_quotes"
	// StateNoOrders means the signal is below threshold and nothing rests.
	StateNoOrders State = "no_orders"
	// StateOrdersResting means at least one clip rests on the book.
	StateOrdersResting State = "orders_resting"
)

// DefaultTickInterval is the decision-loop cadence.
const DefaultTickInterval = time.Second

// Config holds the chaser's strategy parameters.
type Config struct {
	// Market is the pair being chased, e.g. "XEC-USDT".
	Market string

	// NotionalUSD is the total USD notional split across the two clips.
	NotionalUSD float64

	// MinEdgeBps is the minimum profitable divergence in basis points.
	MinEdgeBps float64

	// HiddenRatio is the hidden-to-visible size ratio:
	// visible = total/(1+ratio), hidden = total - visible.
	HiddenRatio float64

	// TickInterval overrides the decision cadence when positive.
	TickInterval time.Duration
}

// Chaser is the per-market order-chasing state machine. It owns both resting
// order handles exclusively; no other component mutates them.
type Chaser struct {
	cfg    Config
	ref    domain.QuoteSource // illiquid venue anchoring placement
	cmp    domain.QuoteSource // liquid venue defining the opportunity
	client domain.TradingClient
	logger *slog.Logger

	state   State
	visible *domain.RestingOrder
	hidden  *domain.RestingOrder
}

// New creates a chaser reading the reference quote from ref and the
// comparison quote from cmp, trading through client.
func New(cfg Config, ref, cmp domain.QuoteSource, client domain.TradingClient, logger *slog.Logger) *Chaser {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	return &Chaser{
		cfg:    cfg,
		ref:    ref,
		cmp:    cmp,
		client: client,
		logger: logger.With(
			slog.String("component", "chaser"),
			slog.String("market", cfg.Market),
		),
		state: StateAwaitingQuotes,
	}
}

// State returns the chaser's current lifecycle state.
func (c *Chaser) State() State { return c.state }

// Run executes the decision loop until ctx is cancelled.
func (c *Chaser) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	c.logger.Info("chaser started",
		slog.Float64("notional_usd", c.cfg.NotionalUSD),
		slog.Float64("min_edge_bps", c.cfg.MinEdgeBps),
		slog.Float64("hidden_ratio", c.cfg.HiddenRatio),
	)

	for {
		select {
		case <-ctx.Done():
			// Leave no orders behind on shutdown.
			if c.state == StateOrdersResting {
				c.cancelAll(context.WithoutCancel(ctx))
			}
			return ctx.Err()
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Tick runs one decision cycle. Exported so tests can drive the state
// machine deterministically.
func (c *Chaser) Tick(ctx context.Context) {
	refQuote, refOK := c.ref.LatestQuote()
	cmpQuote, cmpOK := c.cmp.LatestQuote()
	if !refOK || !cmpOK {
		c.state = StateAwaitingQuotes
		c.logger.Debug("awaiting quotes",
			slog.Bool("reference_ready", refOK),
			slog.Bool("comparison_ready", cmpOK),
		)
		return
	}

	refBid := refQuote.BestBidPrice
	signal, err := arb.DifferenceInBps(refBid, cmpQuote.BestBidPrice)
	if err != nil {
		c.logger.Warn("signal unavailable", slog.String("error", err.Error()))
		return
	}

	if signal < c.cfg.MinEdgeBps {
		if c.state == StateOrdersResting {
			c.logger.Info("signal below threshold, pulling orders",
				slog.Float64("signal_bps", signal),
			)
			c.cancelAll(ctx)
		}
		c.state = StateNoOrders
		return
	}

	switch {
	case c.visible == nil && c.hidden == nil:
		c.logger.Info("placing order pair",
			slog.Float64("signal_bps", signal),
			slog.Float64("price", refBid),
		)
		c.placeMissing(ctx, refBid)

	case c.priceMovedAway(refBid):
		c.logger.Info("reference bid moved, repricing",
			slog.Float64("price", refBid),
		)
		c.cancelAll(ctx)
		c.placeMissing(ctx, refBid)

	default:
		c.replaceFilled(ctx, refBid)
		// Retry any clip whose placement failed on a previous tick.
		c.placeMissing(ctx, refBid)
	}

	if c.visible != nil || c.hidden != nil {
		c.state = StateOrdersResting
	} else {
		c.state = StateNoOrders
	}
}

// priceMovedAway reports whether the reference bid has left either resting
// order's recorded price.
func (c *Chaser) priceMovedAway(refBid float64) bool {
	if c.visible != nil && c.visible.Price != refBid {
		return true
	}
	if c.hidden != nil && c.hidden.Price != refBid {
		return true
	}
	return false
}

// placeMissing submits whichever clips are currently absent at the given
// price. Placement failures degrade to an absent handle, retried next tick.
func (c *Chaser) placeMissing(ctx context.Context, price float64) {
	visibleUSD := c.cfg.NotionalUSD / (1 + c.cfg.HiddenRatio)
	hiddenUSD := c.cfg.NotionalUSD - visibleUSD

	if c.visible == nil {
		c.visible = c.placeClip(ctx, price, visibleUSD, false)
	}
	if c.hidden == nil {
		c.hidden = c.placeClip(ctx, price, hiddenUSD, true)
	}
}

// placeClip submits one buy limit clip sized in base units from its USD
// notional. A failed placement returns nil so the caller treats the clip as
// absent.
func (c *Chaser) placeClip(ctx context.Context, price, notionalUSD float64, hidden bool) *domain.RestingOrder {
	amount := notionalUSD / price

	order, err := c.client.PlaceOrder(ctx, c.cfg.Market, domain.OrderSideBuy, amount, price, hidden)
	if err != nil {
		c.logger.Warn("order placement failed",
			slog.Bool("hidden", hidden),
			slog.Float64("price", price),
			slog.Float64("amount", amount),
			slog.String("error", err.Error()),
		)
		return nil
	}

	c.logger.Info("order placed",
		slog.String("order_id", order.ID),
		slog.Bool("hidden", hidden),
		slog.Float64("price", price),
		slog.Float64("amount", amount),
	)
	return &order
}

// replaceFilled refreshes each resting order from the exchange and replaces
// any fully filled clip at the current reference price, leaving the other
// side untouched.
func (c *Chaser) replaceFilled(ctx context.Context, refBid float64) {
	c.visible = c.refreshAndReplace(ctx, c.visible, refBid, false)
	c.hidden = c.refreshAndReplace(ctx, c.hidden, refBid, true)
}

func (c *Chaser) refreshAndReplace(ctx context.Context, order *domain.RestingOrder, refBid float64, hidden bool) *domain.RestingOrder {
	if order == nil {
		return nil
	}

	refreshed, err := c.client.OrderStatus(ctx, c.cfg.Market, order.ID)
	if err != nil {
		// Keep the recorded amounts; the fill branch does nothing this tick.
		c.logger.Warn("order status refresh failed",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		return order
	}
	refreshed.Hidden = hidden
	if !refreshed.Filled() {
		return &refreshed
	}

	c.logger.Info("clip filled, replacing",
		slog.String("order_id", order.ID),
		slog.Bool("hidden", hidden),
		slog.Float64("price", refBid),
	)

	visibleUSD := c.cfg.NotionalUSD / (1 + c.cfg.HiddenRatio)
	notional := visibleUSD
	if hidden {
		notional = c.cfg.NotionalUSD - visibleUSD
	}
	return c.placeClip(ctx, refBid, notional, hidden)
}

// cancelAll issues one cancel-all for the market and unconditionally clears
// both handles; local state always assumes cancellation succeeded, and any
// discrepancy reconciles on the next quote-driven reprice.
func (c *Chaser) cancelAll(ctx context.Context) {
	if err := c.client.CancelAllOrders(ctx, c.cfg.Market); err != nil {
		c.logger.Warn("cancel all failed", slog.String("error", err.Error()))
	}
	c.visible = nil
	c.hidden = nil
}
