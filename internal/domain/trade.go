package domain

import "time"

// Side is the taker side of a trade print.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Trade is one executed print delivered by a venue's trade channel.
// Ordering follows the venue's delivery order, which is assumed (not
// enforced) to be non-decreasing by timestamp.
type Trade struct {
	Timestamp time.Time
	Venue     string
	Market    string
	TakerSide Side
	Price     float64
	Amount    float64
}
