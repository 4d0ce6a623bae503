package pipeline

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/orayaprolu/spot-arb/internal/domain"
)

// archStores is an in-memory quote/trade/depth store with time-based
// list/delete semantics.
type archStores struct {
	mu     sync.Mutex
	quotes []domain.Quote
	trades []domain.Trade
	depth  []domain.DepthSnapshot
}

func (s *archStores) Insert(_ context.Context, q domain.Quote) error {
	s.quotes = append(s.quotes, q)
	return nil
}

func (s *archStores) InsertBatch(_ context.Context, trades []domain.Trade) error {
	s.trades = append(s.trades, trades...)
	return nil
}

func (s *archStores) ListBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Quote
	for _, q := range s.quotes {
		if q.Timestamp.Before(cutoff) {
			out = append(out, q)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *archStores) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []domain.Quote
	var deleted int64
	for _, q := range s.quotes {
		if q.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, q)
	}
	s.quotes = kept
	return deleted, nil
}

type archTradeStore struct{ *archStores }

func (s archTradeStore) ListBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Trade
	for _, t := range s.trades {
		if t.Timestamp.Before(cutoff) {
			out = append(out, t)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s archTradeStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []domain.Trade
	var deleted int64
	for _, t := range s.trades {
		if t.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, t)
	}
	s.trades = kept
	return deleted, nil
}

type archDepthStore struct{ *archStores }

func (s archDepthStore) Insert(_ context.Context, snap domain.DepthSnapshot) error {
	s.depth = append(s.depth, snap)
	return nil
}

func (s archDepthStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []domain.DepthSnapshot
	var deleted int64
	for _, d := range s.depth {
		if d.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, d)
	}
	s.depth = kept
	return deleted, nil
}

// memWriter records uploaded objects by key.
type memWriter struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    bool
}

func (w *memWriter) Write(_ context.Context, key string, data []byte, _ string) error {
	if w.fail {
		return domain.ErrInvalidInput
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.objects == nil {
		w.objects = map[string][]byte{}
	}
	w.objects[key] = append([]byte(nil), data...)
	return nil
}

func TestRunOnceExportsAndPrunes(t *testing.T) {
	old := time.Now().UTC().Add(-48 * time.Hour)
	fresh := time.Now().UTC()

	stores := &archStores{
		quotes: []domain.Quote{
			{Timestamp: old, Venue: "coinex", Market: "XEC-USDT", BestBidPrice: 1},
			{Timestamp: fresh, Venue: "coinex", Market: "XEC-USDT", BestBidPrice: 2},
		},
		trades: []domain.Trade{
			{Timestamp: old, Venue: "coinex", Market: "XEC-USDT", Price: 1, Amount: 5},
		},
		depth: []domain.DepthSnapshot{
			{Timestamp: old, Venue: "coinex", Market: "XEC-USDT"},
			{Timestamp: fresh, Venue: "coinex", Market: "XEC-USDT"},
		},
	}
	writer := &memWriter{}

	a := NewArchiver(writer, stores, archTradeStore{stores}, archDepthStore{stores}, 24*time.Hour, time.Hour, testLogger)
	if err := a.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if len(stores.quotes) != 1 || stores.quotes[0].BestBidPrice != 2 {
		t.Errorf("quotes after prune = %+v", stores.quotes)
	}
	if len(stores.trades) != 0 {
		t.Errorf("trades after prune = %+v", stores.trades)
	}
	if len(stores.depth) != 1 {
		t.Errorf("depth after prune = %+v", stores.depth)
	}

	var quoteObjs, tradeObjs int
	for key, data := range writer.objects {
		switch {
		case strings.HasPrefix(key, "archive/quotes/"):
			quoteObjs++
			if !bytes.Contains(data, []byte(`"XEC-USDT"`)) {
				t.Errorf("quote archive %s missing market field", key)
			}
		case strings.HasPrefix(key, "archive/trades/"):
			tradeObjs++
		default:
			t.Errorf("unexpected archive key %s", key)
		}
	}
	if quoteObjs != 1 || tradeObjs != 1 {
		t.Errorf("archive objects: %d quotes, %d trades", quoteObjs, tradeObjs)
	}
}

func TestRunOncePagingHoldsBackTiedBoundaryRows(t *testing.T) {
	base := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Second)
	tied := base.Add(2 * time.Second)

	// The page limit of 3 lands mid-timestamp: the third and fourth rows
	// share a timestamp, so the third must be held back for the next page
	// rather than pruned unexported with the first page.
	stores := &archStores{
		quotes: []domain.Quote{
			{Timestamp: base, Venue: "coinex", Market: "XEC-USDT", BestBidPrice: 1},
			{Timestamp: base.Add(time.Second), Venue: "coinex", Market: "XEC-USDT", BestBidPrice: 2},
			{Timestamp: tied, Venue: "coinex", Market: "XEC-USDT", BestBidPrice: 3},
			{Timestamp: tied, Venue: "coinex", Market: "XEC-USDT", BestBidPrice: 4},
		},
		trades: []domain.Trade{
			{Timestamp: base, Venue: "coinex", Market: "XEC-USDT", Price: 1, Amount: 1},
			{Timestamp: base.Add(time.Second), Venue: "coinex", Market: "XEC-USDT", Price: 2, Amount: 1},
			{Timestamp: tied, Venue: "coinex", Market: "XEC-USDT", Price: 3, Amount: 1},
			{Timestamp: tied, Venue: "coinex", Market: "XEC-USDT", Price: 4, Amount: 1},
		},
	}
	writer := &memWriter{}

	a := NewArchiver(writer, stores, archTradeStore{stores}, archDepthStore{stores}, 24*time.Hour, time.Hour, testLogger)
	a.pageSize = 3
	if err := a.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if len(stores.quotes) != 0 {
		t.Errorf("quotes left after pass: %+v", stores.quotes)
	}
	if len(stores.trades) != 0 {
		t.Errorf("trades left after pass: %+v", stores.trades)
	}

	// Every row must land in exactly one object, across two pages per kind
	// with distinct keys.
	var quoteObjs, tradeObjs, quoteRows, tradeRows int
	for key, data := range writer.objects {
		lines := bytes.Count(data, []byte("\n"))
		switch {
		case strings.HasPrefix(key, "archive/quotes/"):
			quoteObjs++
			quoteRows += lines
		case strings.HasPrefix(key, "archive/trades/"):
			tradeObjs++
			tradeRows += lines
		default:
			t.Errorf("unexpected archive key %s", key)
		}
	}
	if quoteObjs != 2 || quoteRows != 4 {
		t.Errorf("quote archives: %d objects, %d rows, want 2 and 4", quoteObjs, quoteRows)
	}
	if tradeObjs != 2 || tradeRows != 4 {
		t.Errorf("trade archives: %d objects, %d rows, want 2 and 4", tradeObjs, tradeRows)
	}
}

func TestRunOnceExportsFullTiedRunAsOnePage(t *testing.T) {
	tied := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Second)

	// Every row in the full page shares one timestamp, so the tied run is
	// re-listed in full and exported as a single oversized object.
	stores := &archStores{
		quotes: []domain.Quote{
			{Timestamp: tied, Venue: "coinex", Market: "XEC-USDT", BestBidPrice: 1},
			{Timestamp: tied, Venue: "coinex", Market: "XEC-USDT", BestBidPrice: 2},
			{Timestamp: tied, Venue: "coinex", Market: "XEC-USDT", BestBidPrice: 3},
		},
	}
	writer := &memWriter{}

	a := NewArchiver(writer, stores, archTradeStore{stores}, archDepthStore{stores}, 24*time.Hour, time.Hour, testLogger)
	a.pageSize = 2
	if err := a.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if len(stores.quotes) != 0 {
		t.Errorf("quotes left after pass: %+v", stores.quotes)
	}
	if len(writer.objects) != 1 {
		t.Fatalf("archive objects = %d, want 1: %v", len(writer.objects), writer.objects)
	}
	for _, data := range writer.objects {
		if lines := bytes.Count(data, []byte("\n")); lines != 3 {
			t.Errorf("archived rows = %d, want 3", lines)
		}
	}
}

func TestRunOnceKeepsRowsWhenUploadFails(t *testing.T) {
	old := time.Now().UTC().Add(-48 * time.Hour)
	stores := &archStores{
		quotes: []domain.Quote{{Timestamp: old, Venue: "coinex", Market: "XEC-USDT"}},
	}
	writer := &memWriter{fail: true}

	a := NewArchiver(writer, stores, archTradeStore{stores}, archDepthStore{stores}, 24*time.Hour, time.Hour, testLogger)
	if err := a.RunOnce(context.Background()); err == nil {
		t.Fatal("RunOnce succeeded despite upload failure")
	}

	if len(stores.quotes) != 1 {
		t.Errorf("rows pruned despite failed upload: %+v", stores.quotes)
	}
}
