package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/orayaprolu/spot-arb/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// failingFeed simulates a feed whose subscription handshake always fails.
type failingFeed struct {
	runs atomic.Int32
}

func (f *failingFeed) Venue() string { return "testvenue" }

func (f *failingFeed) LatestQuote() (domain.Quote, bool) { return domain.Quote{}, false }

func (f *failingFeed) Run(ctx context.Context) error {
	f.runs.Add(1)
	return domain.ErrSubscribeFailed
}

func TestSupervisorRetriesAfterCooldown(t *testing.T) {
	f := &failingFeed{}
	s := NewSupervisor(f, 10*time.Millisecond, testLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run = %v, want context deadline", err)
	}

	if runs := f.runs.Load(); runs < 2 {
		t.Errorf("feed restarted %d times, want at least 2", runs)
	}
}

func TestSupervisorStopsOnCancel(t *testing.T) {
	f := &failingFeed{}
	s := NewSupervisor(f, time.Hour, testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop on cancel")
	}
}

func TestWatchdogFiresAfterUptime(t *testing.T) {
	var fired atomic.Bool
	w := NewWatchdog(10*time.Millisecond, func() { fired.Store(true) }, testLogger)

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !fired.Load() {
		t.Error("watchdog did not fire")
	}
}

func TestWatchdogCancelledBeforeUptime(t *testing.T) {
	var fired atomic.Bool
	w := NewWatchdog(time.Hour, func() { fired.Store(true) }, testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fired.Load() {
		t.Error("watchdog fired despite cancellation")
	}
}
