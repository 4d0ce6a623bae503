package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/orayaprolu/spot-arb/internal/domain"
)

// archivePageSize bounds how many rows a single archive object holds, so an
// oversized backlog is exported in multiple passes instead of one upload.
const archivePageSize = 100_000

// Archiver exports aged rows from the primary store to cold storage as
// JSONL and prunes them once the upload succeeds. Rows are only deleted
// after their archive object is written.
type Archiver struct {
	writer domain.BlobWriter
	quotes domain.QuoteStore
	trades domain.TradeStore
	depth  domain.DepthStore
	logger *slog.Logger

	retention time.Duration
	interval  time.Duration
	pageSize  int
}

// NewArchiver creates an archiver that keeps retention worth of rows hot
// and runs an export pass every interval.
func NewArchiver(
	writer domain.BlobWriter,
	quotes domain.QuoteStore,
	trades domain.TradeStore,
	depth domain.DepthStore,
	retention, interval time.Duration,
	logger *slog.Logger,
) *Archiver {
	return &Archiver{
		writer:    writer,
		quotes:    quotes,
		trades:    trades,
		depth:     depth,
		logger:    logger.With(slog.String("component", "archiver")),
		retention: retention,
		interval:  interval,
		pageSize:  archivePageSize,
	}
}

// Run executes archive passes on the configured interval until ctx is
// cancelled. A failed pass is logged and retried at the next interval.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info("archiver started",
		slog.Duration("retention", a.retention),
		slog.Duration("interval", a.interval),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.RunOnce(ctx); err != nil {
				a.logger.Error("archive pass failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce executes a single archive pass over all stores.
func (a *Archiver) RunOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-a.retention)
	a.logger.Info("archive pass started", slog.Time("cutoff", cutoff))

	quotesArchived, err := a.archiveQuotes(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("pipeline: archive quotes before %v: %w", cutoff, err)
	}

	tradesArchived, err := a.archiveTrades(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("pipeline: archive trades before %v: %w", cutoff, err)
	}

	// Depth snapshots are pruned without export; replaying them has no
	// analytics consumer and they dominate storage.
	depthPruned, err := a.depth.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("pipeline: prune depth before %v: %w", cutoff, err)
	}

	a.logger.Info("archive pass complete",
		slog.Int64("quotes_archived", quotesArchived),
		slog.Int64("trades_archived", tradesArchived),
		slog.Int64("depth_pruned", depthPruned),
	)
	return nil
}

func (a *Archiver) archiveQuotes(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for page := 0; ; page++ {
		quotes, err := a.quotes.ListBefore(ctx, cutoff, a.pageSize)
		if err != nil {
			return total, fmt.Errorf("list: %w", err)
		}
		if len(quotes) == 0 {
			return total, nil
		}

		// The prune below is a pure timestamp cutoff, so a full page must
		// end on a timestamp boundary: rows sharing the final timestamp can
		// extend past the page limit and would otherwise be deleted without
		// ever being exported. Hold them back for the next page; when the
		// whole page shares one timestamp, re-list the full tied run and
		// export it as a single oversized object instead.
		pruneBefore := cutoff
		lastPage := len(quotes) < a.pageSize
		if !lastPage {
			boundary := quotes[len(quotes)-1].Timestamp
			trimmed := trimAtBoundary(quotes, boundary, func(q domain.Quote) time.Time { return q.Timestamp })
			if len(trimmed) == 0 {
				pruneBefore = boundary.Add(time.Microsecond)
				quotes, err = a.quotes.ListBefore(ctx, pruneBefore, 0)
				if err != nil {
					return total, fmt.Errorf("list tied rows: %w", err)
				}
			} else {
				quotes = trimmed
				pruneBefore = boundary
			}
		}

		buf, err := marshalJSONL(quotes)
		if err != nil {
			return total, fmt.Errorf("marshal: %w", err)
		}

		key := archiveKey("quotes", quotes[0].Timestamp, page)
		if err := a.writer.Write(ctx, key, buf, "application/x-ndjson"); err != nil {
			return total, fmt.Errorf("upload %s: %w", key, err)
		}

		// Delete exactly the exported range, not everything before cutoff,
		// so a partial pass never drops unexported rows.
		deleted, err := a.quotes.DeleteBefore(ctx, pruneBefore)
		if err != nil {
			return total, fmt.Errorf("prune: %w", err)
		}
		total += deleted

		if lastPage {
			return total, nil
		}
	}
}

func (a *Archiver) archiveTrades(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for page := 0; ; page++ {
		trades, err := a.trades.ListBefore(ctx, cutoff, a.pageSize)
		if err != nil {
			return total, fmt.Errorf("list: %w", err)
		}
		if len(trades) == 0 {
			return total, nil
		}

		pruneBefore := cutoff
		lastPage := len(trades) < a.pageSize
		if !lastPage {
			boundary := trades[len(trades)-1].Timestamp
			trimmed := trimAtBoundary(trades, boundary, func(t domain.Trade) time.Time { return t.Timestamp })
			if len(trimmed) == 0 {
				pruneBefore = boundary.Add(time.Microsecond)
				trades, err = a.trades.ListBefore(ctx, pruneBefore, 0)
				if err != nil {
					return total, fmt.Errorf("list tied rows: %w", err)
				}
			} else {
				trades = trimmed
				pruneBefore = boundary
			}
		}

		buf, err := marshalJSONL(trades)
		if err != nil {
			return total, fmt.Errorf("marshal: %w", err)
		}

		key := archiveKey("trades", trades[0].Timestamp, page)
		if err := a.writer.Write(ctx, key, buf, "application/x-ndjson"); err != nil {
			return total, fmt.Errorf("upload %s: %w", key, err)
		}

		deleted, err := a.trades.DeleteBefore(ctx, pruneBefore)
		if err != nil {
			return total, fmt.Errorf("prune: %w", err)
		}
		total += deleted

		if lastPage {
			return total, nil
		}
	}
}

// trimAtBoundary drops trailing rows whose timestamp equals boundary.
func trimAtBoundary[T any](rows []T, boundary time.Time, tsOf func(T) time.Time) []T {
	i := len(rows)
	for i > 0 && tsOf(rows[i-1]).Equal(boundary) {
		i--
	}
	return rows[:i]
}

// archiveKey builds the object key for an archive file, partitioned by the
// day of the oldest exported row. Pages advance strictly forward in time, so
// the oldest-row time plus the page index keeps keys unique within and
// across passes.
//
//	archive/quotes/2026-08-29/143005.000127-0.jsonl
func archiveKey(kind string, oldest time.Time, page int) string {
	return fmt.Sprintf("archive/%s/%s/%s-%d.jsonl",
		kind,
		oldest.UTC().Format("2006-01-02"),
		oldest.UTC().Format("150405.000000"),
		page,
	)
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
