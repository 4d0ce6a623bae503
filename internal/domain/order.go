package domain

import (
	"context"
	"time"
)

// OrderSide indicates whether an order buys or sells the base asset.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// RestingOrder is an open limit order as the exchange last reported it.
// It is owned exclusively by the order chaser between placement and the next
// cancel/replace decision, and must be treated as possibly non-existent once
// the quote it was placed against has been superseded.
type RestingOrder struct {
	ID             string
	ClientID       string
	Market         string
	Side           OrderSide
	Price          float64
	Amount         float64
	UnfilledAmount float64
	FilledAmount   float64
	Hidden         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Filled reports whether the order has no unfilled amount left.
func (o RestingOrder) Filled() bool {
	return o.UnfilledAmount <= 0
}

// TradingClient is the signed-REST exchange surface the chaser drives.
// Implementations authenticate every request; callers depend only on the
// success/failure contract, never on the signing mechanics.
type TradingClient interface {
	// PlaceOrder submits a limit order and returns the exchange's view of it,
	// including the echoed unfilled/filled amounts.
	PlaceOrder(ctx context.Context, market string, side OrderSide, amount, price float64, hidden bool) (RestingOrder, error)

	// CancelAllOrders cancels every open order for the market.
	CancelAllOrders(ctx context.Context, market string) error

	// CancelOrder cancels a single order by its exchange-assigned ID.
	CancelOrder(ctx context.Context, market, orderID string) error

	// OrderStatus refreshes a resting order's fill state from the exchange.
	OrderStatus(ctx context.Context, market, orderID string) (RestingOrder, error)
}
