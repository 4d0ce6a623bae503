package domain

import "time"

// PriceLevel is a single price+size entry in a depth snapshot.
type PriceLevel struct {
	Price float64
	Size  float64
}

// DepthSnapshot is a full replacement of the visible book at one instant.
// Bids are ordered best-to-worst (strictly descending price), asks strictly
// ascending. Each snapshot is authoritative, not a delta on the previous one.
type DepthSnapshot struct {
	Timestamp time.Time
	Venue     string
	Market    string
	Bids      []PriceLevel
	Asks      []PriceLevel
}

// BestBid returns the top bid level, if any.
func (d DepthSnapshot) BestBid() (PriceLevel, bool) {
	if len(d.Bids) == 0 {
		return PriceLevel{}, false
	}
	return d.Bids[0], true
}

// BestAsk returns the top ask level, if any.
func (d DepthSnapshot) BestAsk() (PriceLevel, bool) {
	if len(d.Asks) == 0 {
		return PriceLevel{}, false
	}
	return d.Asks[0], true
}
