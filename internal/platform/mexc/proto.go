package mexc

import (
	"fmt"
	"strconv"

	"google.golang.org/protobuf/encoding/protowire"
)

// MEXC pushes binary protobuf frames on its v3 websocket. The only message
// the feed consumes is the aggregated book-ticker wrapped in
// PushDataV3ApiWrapper, so the frames are decoded directly with protowire
// instead of carrying generated bindings for the venue's full schema.
//
// PushDataV3ApiWrapper field numbers:
//
//	1   channel (string)
//	3   symbol (string)
//	6   sendTime (int64, ms)
//	315 publicAggreBookTicker (message)
//
// PublicAggreBookTickerV3Api field numbers:
//
//	1 bidPrice (string)  2 bidQuantity (string)
//	3 askPrice (string)  4 askQuantity (string)
const (
	wrapperFieldChannel    = 1
	wrapperFieldSymbol     = 3
	wrapperFieldSendTime   = 6
	wrapperFieldBookTicker = 315

	tickerFieldBidPrice = 1
	tickerFieldBidQty   = 2
	tickerFieldAskPrice = 3
	tickerFieldAskQty   = 4
)

// bookTicker is the decoded best-bid/ask content of one push frame.
type bookTicker struct {
	Channel    string
	Symbol     string
	SendTimeMs int64
	BidPrice   float64
	BidQty     float64
	AskPrice   float64
	AskQty     float64
}

// decodeBookTicker parses a PushDataV3ApiWrapper frame. Frames that carry a
// body other than the aggregated book ticker decode with ok=false.
func decodeBookTicker(raw []byte) (bookTicker, bool, error) {
	var bt bookTicker
	var sawTicker bool

	b := raw
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return bookTicker{}, false, fmt.Errorf("mexc: bad wrapper tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == wrapperFieldChannel && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return bookTicker{}, false, fmt.Errorf("mexc: bad channel: %w", protowire.ParseError(n))
			}
			bt.Channel = v
			b = b[n:]

		case num == wrapperFieldSymbol && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return bookTicker{}, false, fmt.Errorf("mexc: bad symbol: %w", protowire.ParseError(n))
			}
			bt.Symbol = v
			b = b[n:]

		case num == wrapperFieldSendTime && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return bookTicker{}, false, fmt.Errorf("mexc: bad send time: %w", protowire.ParseError(n))
			}
			bt.SendTimeMs = int64(v)
			b = b[n:]

		case num == wrapperFieldBookTicker && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return bookTicker{}, false, fmt.Errorf("mexc: bad ticker body: %w", protowire.ParseError(n))
			}
			if err := decodeTickerBody(v, &bt); err != nil {
				return bookTicker{}, false, err
			}
			sawTicker = true
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return bookTicker{}, false, fmt.Errorf("mexc: bad field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	return bt, sawTicker, nil
}

func decodeTickerBody(raw []byte, bt *bookTicker) error {
	b := raw
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("mexc: bad ticker tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.BytesType {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("mexc: bad ticker field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeString(b)
		if n < 0 {
			return fmt.Errorf("mexc: bad ticker value: %w", protowire.ParseError(n))
		}
		b = b[n:]

		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("mexc: ticker field %d %q: %w", num, v, err)
		}
		switch num {
		case tickerFieldBidPrice:
			bt.BidPrice = f
		case tickerFieldBidQty:
			bt.BidQty = f
		case tickerFieldAskPrice:
			bt.AskPrice = f
		case tickerFieldAskQty:
			bt.AskQty = f
		}
	}
	return nil
}
