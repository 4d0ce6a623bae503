// Package mexc implements the MEXC best-bid/ask feed. Unlike the CoinEx
// feed it keeps no event queues: it maintains only the latest quote, read by
// polling.
package mexc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/orayaprolu/spot-arb/internal/domain"
)

// VenueName identifies MEXC in canonical events and log context.
const VenueName = "mexc"

// DefaultWSURL is the MEXC v3 websocket endpoint.
const DefaultWSURL = "wss://wbs-api.mexc.com/ws"

// bookTickerChannel is the aggregated best-bid/ask push channel.
const bookTickerChannel = "spot@public.aggre.bookTicker.v3.api.pb@100ms"

const (
	writeWait         = 10 * time.Second
	keepaliveInterval = 10 * time.Second
	sessionTTL        = time.Hour
	reconnectPause    = 2 * time.Second
)

// wsRequest is the outbound JSON envelope for subscriptions and pings.
type wsRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params,omitempty"`
}

// Feed owns one persistent connection to MEXC for one market and caches the
// most recent quote, last-write-wins.
type Feed struct {
	wsURL  string
	market string
	logger *slog.Logger

	mu     sync.RWMutex
	latest domain.Quote
	seen   bool
}

var _ domain.DataFeed = (*Feed)(nil)

// NewFeed creates a pull-cached feed for the given pair (e.g. "XEC-USDT").
// An empty wsURL selects the production endpoint.
func NewFeed(wsURL, pair string, logger *slog.Logger) *Feed {
	if wsURL == "" {
		wsURL = DefaultWSURL
	}
	market := strings.ReplaceAll(pair, "-", "")
	return &Feed{
		wsURL:  wsURL,
		market: market,
		logger: logger.With(
			slog.String("venue", VenueName),
			slog.String("market", market),
		),
	}
}

// Venue implements domain.QuoteSource.
func (f *Feed) Venue() string { return VenueName }

// Market returns the venue-formatted market identifier.
func (f *Feed) Market() string { return f.market }

// LatestQuote returns the most recent quote and whether one has arrived yet.
func (f *Feed) LatestQuote() (domain.Quote, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.latest, f.seen
}

// Run connects, subscribes, and streams until ctx is cancelled, with the
// same bounded-session restart shape as the CoinEx feed. A failed
// subscription send is fatal and returned to the supervisor.
func (f *Feed) Run(ctx context.Context) error {
	for {
		if err := f.runSession(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectPause):
		}
		f.logger.Info("reconnecting websocket")
	}
}

func (f *Feed) runSession(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("mexc: connect: %w: %w", domain.ErrSubscribeFailed, err)
	}
	defer conn.Close()
	f.logger.Info("connected to websocket")

	sub := wsRequest{
		Method: "SUBSCRIPTION",
		Params: []string{bookTickerChannel + "@" + f.market},
	}
	payload, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("mexc: marshal subscription: %w", err)
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("mexc: subscribe: %w: %w", domain.ErrSubscribeFailed, err)
	}
	f.logger.Info("subscribed", slog.String("channel", bookTickerChannel))

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- f.keepalive(sessionCtx, conn) }()
	go func() { errCh <- f.readLoop(sessionCtx, conn) }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			f.logger.Error("session task failed", slog.String("error", err.Error()))
		}
	case <-time.After(sessionTTL):
		f.logger.Info("session ceiling reached, recycling connection")
	}
	return nil
}

// keepalive sends PING on a fixed cadence and exits quietly when the
// connection stops accepting writes.
func (f *Feed) keepalive(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	ping, _ := json.Marshal(wsRequest{Method: "PING"})
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
				return fmt.Errorf("keepalive: %w", domain.ErrWSDisconnect)
			}
		}
	}
}

// readLoop decodes binary book-ticker frames into the cached quote. Text
// frames (subscription acks, PONG replies) are skipped; malformed frames are
// dropped and the stream continues.
func (f *Feed) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return fmt.Errorf("read: %w: %w", domain.ErrWSDisconnect, err)
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		bt, ok, err := decodeBookTicker(raw)
		if err != nil {
			f.logger.Warn("dropping undecodable frame", slog.String("error", err.Error()))
			continue
		}
		if !ok {
			continue
		}

		ts := time.Now().UTC()
		if bt.SendTimeMs > 0 {
			ts = time.UnixMilli(bt.SendTimeMs).UTC()
		}
		symbol := bt.Symbol
		if symbol == "" {
			symbol = f.market
		}

		quote := domain.Quote{
			Timestamp:    ts,
			Venue:        VenueName,
			Market:       symbol,
			BestBidPrice: bt.BidPrice,
			BestBidSize:  bt.BidQty,
			BestAskPrice: bt.AskPrice,
			BestAskSize:  bt.AskQty,
		}
		if quote.Crossed() {
			f.logger.Warn("crossed quote from venue",
				slog.Float64("bid", quote.BestBidPrice),
				slog.Float64("ask", quote.BestAskPrice),
			)
		}

		f.mu.Lock()
		f.latest = quote
		f.seen = true
		f.mu.Unlock()
	}
}
