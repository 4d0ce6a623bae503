package domain

import "context"

// QuoteSource exposes the most recent canonical quote a feed has produced.
// The underlying field is single-writer (only the owning feed updates it);
// readers always go through this accessor so a concrete feed can guard the
// field however its scheduling model requires.
type QuoteSource interface {
	// Venue names the venue the source reads from, for log context.
	Venue() string

	// LatestQuote returns the most recent quote and whether one has been
	// received yet.
	LatestQuote() (Quote, bool)
}

// DataFeed is one persistent streaming connection to a venue for one market.
//
// Run connects, subscribes, and keeps the session alive until ctx is
// cancelled. Transport failures are recovered internally by re-entering the
// connect/subscribe cycle; Run returns an error only when the subscription
// handshake itself fails, which is fatal for that connection attempt and is
// left to the supervisor to retry.
type DataFeed interface {
	QuoteSource
	Run(ctx context.Context) error
}

// StreamingFeed is a DataFeed that delivers every canonical event through
// per-type FIFO channels in venue delivery order. No ordering is guaranteed
// across event types.
type StreamingFeed interface {
	DataFeed
	Quotes() <-chan Quote
	Trades() <-chan Trade
	Depth() <-chan DepthSnapshot
}
