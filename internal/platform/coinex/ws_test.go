package coinex

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/orayaprolu/spot-arb/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func gzipFrame(t *testing.T, payload string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(payload)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

// wsServer upgrades a single connection and hands it to fn.
func wsServer(t *testing.T, fn func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		fn(conn)
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestRunFatalOnSubscriptionFailure(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		// Close without acknowledging; the subscribe ack read must fail.
	})
	defer srv.Close()

	f := NewFeed(wsURL(srv), "XEC-USDT", testLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := f.Run(ctx)
	if !errors.Is(err, domain.ErrSubscribeFailed) {
		t.Fatalf("Run = %v, want ErrSubscribeFailed", err)
	}
}

func TestRunStreamsCanonicalEvents(t *testing.T) {
	const bboFrame = `{"method":"bbo.update","data":{"market":"XECUSDT","updated_at":1700000000123,` +
		`"best_bid_price":"0.000027","best_bid_size":"100","best_ask_price":"0.000028","best_ask_size":"50"}}`
	const dealsFrame = `{"method":"deals.update","data":{"market":"XECUSDT","deal_list":[` +
		`{"deal_id":1,"created_at":1700000000000,"side":"buy","price":"0.000027","amount":"10"}]}}`
	const junkFrame = `{"method":"mystery.update","data":{}}`

	srv := wsServer(t, func(conn *websocket.Conn) {
		// Ack the three subscriptions.
		for i := 0; i < 3; i++ {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"id":1,"code":0,"message":"OK"}`)); err != nil {
				return
			}
		}
		conn.WriteMessage(websocket.BinaryMessage, gzipFrame(t, bboFrame))
		conn.WriteMessage(websocket.BinaryMessage, gzipFrame(t, junkFrame))
		conn.WriteMessage(websocket.BinaryMessage, gzipFrame(t, dealsFrame))
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	f := NewFeed(wsURL(srv), "XEC-USDT", testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.Run(ctx)

	select {
	case q := <-f.Quotes():
		if q.Market != "XECUSDT" || q.BestBidPrice != 0.000027 {
			t.Errorf("quote = %+v", q)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for quote")
	}

	select {
	case tr := <-f.Trades():
		if tr.TakerSide != domain.SideBuy || tr.Amount != 10 {
			t.Errorf("trade = %+v", tr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for trade")
	}

	if q, ok := f.LatestQuote(); !ok || q.BestAskPrice != 0.000028 {
		t.Errorf("LatestQuote = %+v, %v", q, ok)
	}
}
