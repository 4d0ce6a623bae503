package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orayaprolu/spot-arb/internal/arb"
	"github.com/orayaprolu/spot-arb/internal/chase"
	"github.com/orayaprolu/spot-arb/internal/feed"
	"github.com/orayaprolu/spot-arb/internal/pipeline"
)

// TradeMode runs both venue feeds under supervision and drives the order
// allocation loop configured in strategy.allocation.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode",
		slog.String("allocation", a.cfg.Strategy.Allocation),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	a.startFeeds(g, gctx, deps, true)
	a.startWatchdog(g, gctx, cancel)

	switch a.cfg.Strategy.Allocation {
	case "ladder":
		placer := chase.NewLadderPlacer(chase.LadderConfig{
			Market:       a.cfg.CoinEx.Market,
			NotionalUSD:  a.cfg.Strategy.NotionalUSD,
			MinEdgeBps:   a.cfg.Strategy.MinEdgeBps,
			NumRungs:     a.cfg.Ladder.NumRungs,
			SpreadWidth:  a.cfg.Ladder.SpreadWidth,
			TaperRatio:   a.cfg.Ladder.TaperRatio,
			TickInterval: a.cfg.Strategy.TickInterval.Duration,
		}, deps.CoinExFeed, deps.MEXCFeed, deps.Trading, a.logger)
		g.Go(func() error {
			return placer.Run(gctx)
		})

	default:
		chaser := chase.New(chase.Config{
			Market:       a.cfg.CoinEx.Market,
			NotionalUSD:  a.cfg.Strategy.NotionalUSD,
			MinEdgeBps:   a.cfg.Strategy.MinEdgeBps,
			HiddenRatio:  a.cfg.Strategy.HiddenRatio,
			TickInterval: a.cfg.Strategy.TickInterval.Duration,
		}, deps.CoinExFeed, deps.MEXCFeed, deps.Trading, a.logger)
		g.Go(func() error {
			return chaser.Run(gctx)
		})
	}

	return g.Wait()
}

// RecordMode runs the CoinEx feed under supervision and persists every
// canonical event, with optional Redis fan-out and S3 cold archival.
func (a *App) RecordMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting record mode")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	a.startFeeds(g, gctx, deps, false)
	a.startWatchdog(g, gctx, cancel)

	recorder := pipeline.NewRecorder(
		deps.CoinExFeed,
		deps.QuoteStore,
		deps.TradeStore,
		deps.DepthStore,
		deps.QuoteCache,
		deps.EventBus,
		a.logger,
	)
	g.Go(func() error {
		return recorder.Run(gctx)
	})

	if deps.BlobWriter != nil {
		archiver := pipeline.NewArchiver(
			deps.BlobWriter,
			deps.QuoteStore,
			deps.TradeStore,
			deps.DepthStore,
			a.cfg.Pipeline.ArchiveRetention.Duration,
			a.cfg.Pipeline.ArchiveInterval.Duration,
			a.logger,
		)
		g.Go(func() error {
			return archiver.Run(gctx)
		})
	}

	return g.Wait()
}

// MonitorMode runs both venue feeds under supervision and logs the
// divergence signal every tick without placing orders.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	a.startFeeds(g, gctx, deps, true)
	a.startWatchdog(g, gctx, cancel)

	g.Go(func() error {
		return a.monitorSignal(gctx, deps)
	})

	return g.Wait()
}

// startFeeds launches the CoinEx feed, and optionally the MEXC feed, each
// under its own supervisor.
func (a *App) startFeeds(g *errgroup.Group, ctx context.Context, deps *Dependencies, withMEXC bool) {
	cooldown := a.cfg.Feed.RetryCooldown.Duration

	coinexSup := feed.NewSupervisor(deps.CoinExFeed, cooldown, a.logger)
	g.Go(func() error {
		return coinexSup.Run(ctx)
	})

	if withMEXC {
		mexcSup := feed.NewSupervisor(deps.MEXCFeed, cooldown, a.logger)
		g.Go(func() error {
			return mexcSup.Run(ctx)
		})
	}
}

// startWatchdog bounds process uptime when configured. The process exits
// cleanly when the watchdog fires and the process supervisor restarts it
// with a fresh state.
func (a *App) startWatchdog(g *errgroup.Group, ctx context.Context, stop func()) {
	uptime := a.cfg.Feed.WatchdogUptime.Duration
	if uptime <= 0 {
		return
	}
	watchdog := feed.NewWatchdog(uptime, stop, a.logger)
	g.Go(func() error {
		return watchdog.Run(ctx)
	})
}

// monitorSignal logs the cross-venue divergence once per tick.
func (a *App) monitorSignal(ctx context.Context, deps *Dependencies) error {
	interval := a.cfg.Strategy.TickInterval.Duration
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := a.logger.With(slog.String("component", "monitor"))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		refQuote, refOK := deps.CoinExFeed.LatestQuote()
		cmpQuote, cmpOK := deps.MEXCFeed.LatestQuote()
		if !refOK || !cmpOK {
			logger.Debug("awaiting quotes",
				slog.Bool("coinex_ready", refOK),
				slog.Bool("mexc_ready", cmpOK),
			)
			continue
		}

		signal, err := arb.DifferenceInBps(refQuote.BestBidPrice, cmpQuote.BestBidPrice)
		if err != nil {
			logger.Warn("signal unavailable", slog.String("error", err.Error()))
			continue
		}

		logger.Info("divergence",
			slog.Float64("signal_bps", signal),
			slog.Float64("coinex_bid", refQuote.BestBidPrice),
			slog.Float64("mexc_bid", cmpQuote.BestBidPrice),
			slog.Bool("above_threshold", signal > a.cfg.Strategy.MinEdgeBps),
		)
	}
}
