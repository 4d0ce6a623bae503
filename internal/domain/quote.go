package domain

import "time"

// Quote is the canonical best-bid/best-ask snapshot for one venue/market
// pair. Feeds overwrite it last-write-wins; consumers only ever need the
// most recent one.
type Quote struct {
	Timestamp time.Time
	Venue     string
	Market    string

	BestBidPrice float64
	BestBidSize  float64
	BestAskPrice float64
	BestAskSize  float64
}

// Crossed reports whether the bid is strictly above the ask. A locked book
// (bid == ask) is valid venue output; venues emit genuinely crossed books
// transiently during fast markets, and consumers decide whether to act on
// them.
func (q Quote) Crossed() bool {
	return q.BestBidPrice > q.BestAskPrice
}
