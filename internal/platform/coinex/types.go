package coinex

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/orayaprolu/spot-arb/internal/domain"
)

// wsRequest is the outbound JSON envelope for subscriptions and pings.
type wsRequest struct {
	Method string `json:"method"`
	Params any    `json:"params"`
	ID     int    `json:"id"`
}

// wsEnvelope is the inbound message envelope. Method is the dispatch tag;
// Data is decoded per message kind.
type wsEnvelope struct {
	Method string          `json:"method"`
	Data   json.RawMessage `json:"data"`
}

// messageKind is the closed set of inbound push messages the feed handles.
// The envelope tag is decoded once at the boundary; an unknown tag is a
// decode failure, not a silent no-op.
type messageKind int

const (
	kindUnknown messageKind = iota
	kindQuote
	kindTrades
	kindDepth
)

func kindOf(method string) messageKind {
	switch method {
	case "bbo.update":
		return kindQuote
	case "deals.update":
		return kindTrades
	case "depth.update":
		return kindDepth
	default:
		return kindUnknown
	}
}

// bboPayload is the payload of a bbo.update push. CoinEx serialises prices
// and sizes as decimal strings.
type bboPayload struct {
	Market       string `json:"market"`
	UpdatedAt    int64  `json:"updated_at"`
	BestBidPrice string `json:"best_bid_price"`
	BestBidSize  string `json:"best_bid_size"`
	BestAskPrice string `json:"best_ask_price"`
	BestAskSize  string `json:"best_ask_size"`
}

// dealsPayload is the payload of a deals.update push: a batch of prints
// sharing one frame, in venue order.
type dealsPayload struct {
	Market   string     `json:"market"`
	DealList []dealItem `json:"deal_list"`
}

type dealItem struct {
	DealID    int64  `json:"deal_id"`
	CreatedAt int64  `json:"created_at"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Amount    string `json:"amount"`
}

// depthPayload is the payload of a depth.update push. Levels fully replace
// the previous visible book.
type depthPayload struct {
	Market string `json:"market"`
	IsFull bool   `json:"is_full"`
	Depth  struct {
		UpdatedAt int64       `json:"updated_at"`
		Bids      [][2]string `json:"bids"`
		Asks      [][2]string `json:"asks"`
	} `json:"depth"`
}

func parseFloat(s, field string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("coinex: parse %s %q: %w", field, s, err)
	}
	return f, nil
}

func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// quoteFromPayload converts a bbo.update payload to a canonical quote.
func quoteFromPayload(p bboPayload) (domain.Quote, error) {
	bidPrice, err := parseFloat(p.BestBidPrice, "best_bid_price")
	if err != nil {
		return domain.Quote{}, err
	}
	bidSize, err := parseFloat(p.BestBidSize, "best_bid_size")
	if err != nil {
		return domain.Quote{}, err
	}
	askPrice, err := parseFloat(p.BestAskPrice, "best_ask_price")
	if err != nil {
		return domain.Quote{}, err
	}
	askSize, err := parseFloat(p.BestAskSize, "best_ask_size")
	if err != nil {
		return domain.Quote{}, err
	}

	return domain.Quote{
		Timestamp:    millisToTime(p.UpdatedAt),
		Venue:        VenueName,
		Market:       p.Market,
		BestBidPrice: bidPrice,
		BestBidSize:  bidSize,
		BestAskPrice: askPrice,
		BestAskSize:  askSize,
	}, nil
}

// tradesFromPayload converts a deals.update batch, preserving venue order.
func tradesFromPayload(p dealsPayload) ([]domain.Trade, error) {
	trades := make([]domain.Trade, 0, len(p.DealList))
	for _, d := range p.DealList {
		price, err := parseFloat(d.Price, "deal price")
		if err != nil {
			return nil, err
		}
		amount, err := parseFloat(d.Amount, "deal amount")
		if err != nil {
			return nil, err
		}
		side := domain.SideSell
		if d.Side == "buy" {
			side = domain.SideBuy
		}
		trades = append(trades, domain.Trade{
			Timestamp: millisToTime(d.CreatedAt),
			Venue:     VenueName,
			Market:    p.Market,
			TakerSide: side,
			Price:     price,
			Amount:    amount,
		})
	}
	return trades, nil
}

// depthFromPayload converts a depth.update payload to a canonical snapshot.
func depthFromPayload(p depthPayload) (domain.DepthSnapshot, error) {
	levels := func(raw [][2]string, what string) ([]domain.PriceLevel, error) {
		out := make([]domain.PriceLevel, 0, len(raw))
		for _, lv := range raw {
			price, err := parseFloat(lv[0], what+" price")
			if err != nil {
				return nil, err
			}
			size, err := parseFloat(lv[1], what+" size")
			if err != nil {
				return nil, err
			}
			out = append(out, domain.PriceLevel{Price: price, Size: size})
		}
		return out, nil
	}

	bids, err := levels(p.Depth.Bids, "bid")
	if err != nil {
		return domain.DepthSnapshot{}, err
	}
	asks, err := levels(p.Depth.Asks, "ask")
	if err != nil {
		return domain.DepthSnapshot{}, err
	}

	return domain.DepthSnapshot{
		Timestamp: millisToTime(p.Depth.UpdatedAt),
		Venue:     VenueName,
		Market:    p.Market,
		Bids:      bids,
		Asks:      asks,
	}, nil
}

// ---------------------------------------------------------------------------
// REST trading types
// ---------------------------------------------------------------------------

// apiResponse is the envelope every CoinEx v2 REST endpoint returns.
// A non-zero code means the request was rejected.
type apiResponse struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// orderData is the order object echoed by order placement and status
// endpoints. Amounts are decimal strings.
type orderData struct {
	OrderID        int64  `json:"order_id"`
	Market         string `json:"market"`
	Side           string `json:"side"`
	Type           string `json:"type"`
	Amount         string `json:"amount"`
	Price          string `json:"price"`
	UnfilledAmount string `json:"unfilled_amount"`
	FilledAmount   string `json:"filled_amount"`
	ClientID       string `json:"client_id"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
}

// restingOrderFromData converts an exchange order object. The hidden flag is
// not echoed back by the exchange, so the caller supplies it.
func restingOrderFromData(d orderData, hidden bool) (domain.RestingOrder, error) {
	price, err := parseFloat(d.Price, "order price")
	if err != nil {
		return domain.RestingOrder{}, err
	}
	amount, err := parseFloat(d.Amount, "order amount")
	if err != nil {
		return domain.RestingOrder{}, err
	}
	unfilled, err := parseFloat(d.UnfilledAmount, "unfilled_amount")
	if err != nil {
		return domain.RestingOrder{}, err
	}
	filled, err := parseFloat(d.FilledAmount, "filled_amount")
	if err != nil {
		return domain.RestingOrder{}, err
	}

	side := domain.OrderSideBuy
	if d.Side == "sell" {
		side = domain.OrderSideSell
	}

	return domain.RestingOrder{
		ID:             strconv.FormatInt(d.OrderID, 10),
		ClientID:       d.ClientID,
		Market:         d.Market,
		Side:           side,
		Price:          price,
		Amount:         amount,
		UnfilledAmount: unfilled,
		FilledAmount:   filled,
		Hidden:         hidden,
		CreatedAt:      millisToTime(d.CreatedAt),
		UpdatedAt:      millisToTime(d.UpdatedAt),
	}, nil
}
