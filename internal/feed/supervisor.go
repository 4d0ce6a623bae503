// Package feed supervises venue data feeds and bounds total process uptime.
package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/orayaprolu/spot-arb/internal/domain"
)

// DefaultCooldown is the pause between supervisor restarts. It is
// deliberately longer than a feed's internal reconnect pause: by the time an
// error escapes the feed, the venue has already refused a full
// connect/subscribe cycle.
const DefaultCooldown = 2 * time.Minute

// Supervisor wraps a feed's Run in an outer retry loop. Every escaping error
// is logged and retried after a fixed cooldown, unbounded, converting the
// feed's fatal-on-subscription-failure contract into an eventually
// recovering behavior.
type Supervisor struct {
	feed     domain.DataFeed
	cooldown time.Duration
	logger   *slog.Logger
}

// NewSupervisor creates a supervisor for the given feed. A non-positive
// cooldown selects DefaultCooldown.
func NewSupervisor(f domain.DataFeed, cooldown time.Duration, logger *slog.Logger) *Supervisor {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Supervisor{
		feed:     f,
		cooldown: cooldown,
		logger: logger.With(
			slog.String("component", "feed_supervisor"),
			slog.String("venue", f.Venue()),
		),
	}
}

// Run keeps the feed alive until ctx is cancelled. It returns ctx.Err() on
// cancellation; no feed error terminates it.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		s.logger.Info("starting feed")
		err := s.feed.Run(ctx)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.logger.Error("feed exited", slog.String("error", err.Error()))
		} else {
			s.logger.Warn("feed exited without error")
		}

		s.logger.Info("retrying feed after cooldown", slog.Duration("cooldown", s.cooldown))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cooldown):
		}
	}
}

// Watchdog triggers an orderly full-process restart after a fixed uptime
// ceiling, independent of any failure signal, to bound the blast radius of
// any undetected stuck state.
type Watchdog struct {
	uptime time.Duration
	stop   func()
	logger *slog.Logger
}

// NewWatchdog creates a watchdog that calls stop once the uptime ceiling
// elapses. stop is expected to cancel the root context so the process exits
// through its normal shutdown path.
func NewWatchdog(uptime time.Duration, stop func(), logger *slog.Logger) *Watchdog {
	return &Watchdog{
		uptime: uptime,
		stop:   stop,
		logger: logger.With(slog.String("component", "watchdog")),
	}
}

// Run waits out the uptime ceiling, then fires. It returns nil if ctx is
// cancelled first.
func (w *Watchdog) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-time.After(w.uptime):
	}

	w.logger.Info("uptime ceiling reached, requesting restart",
		slog.Duration("uptime", w.uptime),
	)
	w.stop()
	return nil
}
