package mexc

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

// encodeFrame builds a PushDataV3ApiWrapper frame the way the venue does.
func encodeFrame(channel, symbol string, sendTime int64, bid, bidQty, ask, askQty string) []byte {
	var body []byte
	body = protowire.AppendTag(body, tickerFieldBidPrice, protowire.BytesType)
	body = protowire.AppendString(body, bid)
	body = protowire.AppendTag(body, tickerFieldBidQty, protowire.BytesType)
	body = protowire.AppendString(body, bidQty)
	body = protowire.AppendTag(body, tickerFieldAskPrice, protowire.BytesType)
	body = protowire.AppendString(body, ask)
	body = protowire.AppendTag(body, tickerFieldAskQty, protowire.BytesType)
	body = protowire.AppendString(body, askQty)

	var frame []byte
	frame = protowire.AppendTag(frame, wrapperFieldChannel, protowire.BytesType)
	frame = protowire.AppendString(frame, channel)
	frame = protowire.AppendTag(frame, wrapperFieldSymbol, protowire.BytesType)
	frame = protowire.AppendString(frame, symbol)
	frame = protowire.AppendTag(frame, wrapperFieldSendTime, protowire.VarintType)
	frame = protowire.AppendVarint(frame, uint64(sendTime))
	frame = protowire.AppendTag(frame, wrapperFieldBookTicker, protowire.BytesType)
	frame = protowire.AppendBytes(frame, body)
	return frame
}

func TestDecodeBookTicker(t *testing.T) {
	frame := encodeFrame(
		"spot@public.aggre.bookTicker.v3.api.pb@100ms@XECUSDT",
		"XECUSDT", 1700000000123,
		"0.00002710", "1200000", "0.00002720", "900000",
	)

	bt, ok, err := decodeBookTicker(frame)
	if err != nil {
		t.Fatalf("decodeBookTicker: %v", err)
	}
	if !ok {
		t.Fatal("decodeBookTicker: ok = false")
	}

	if bt.Symbol != "XECUSDT" {
		t.Errorf("Symbol = %q", bt.Symbol)
	}
	if bt.SendTimeMs != 1700000000123 {
		t.Errorf("SendTimeMs = %d", bt.SendTimeMs)
	}
	if bt.BidPrice != 0.00002710 || bt.AskPrice != 0.00002720 {
		t.Errorf("prices = %v/%v", bt.BidPrice, bt.AskPrice)
	}
	if bt.BidQty != 1200000 || bt.AskQty != 900000 {
		t.Errorf("quantities = %v/%v", bt.BidQty, bt.AskQty)
	}
}

func TestDecodeBookTickerSkipsOtherBodies(t *testing.T) {
	// A wrapper carrying an unrelated body field must decode with ok=false.
	var frame []byte
	frame = protowire.AppendTag(frame, wrapperFieldChannel, protowire.BytesType)
	frame = protowire.AppendString(frame, "spot@public.aggre.deals.v3.api.pb@100ms@XECUSDT")
	frame = protowire.AppendTag(frame, 314, protowire.BytesType) // aggre deals
	frame = protowire.AppendBytes(frame, []byte{})

	_, ok, err := decodeBookTicker(frame)
	if err != nil {
		t.Fatalf("decodeBookTicker: %v", err)
	}
	if ok {
		t.Error("expected ok = false for non-ticker body")
	}
}

func TestDecodeBookTickerMalformed(t *testing.T) {
	if _, _, err := decodeBookTicker([]byte{0xff, 0xff, 0xff}); err == nil {
		t.Error("expected error for malformed frame")
	}
}

func TestDecodeBookTickerBadNumber(t *testing.T) {
	frame := encodeFrame("ch", "XECUSDT", 1, "not-a-price", "1", "2", "3")
	if _, _, err := decodeBookTicker(frame); err == nil {
		t.Error("expected error for non-numeric price")
	}
}
