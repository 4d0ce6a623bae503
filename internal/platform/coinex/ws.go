// Package coinex implements the CoinEx spot market-data feed and the signed
// REST trading client.
package coinex

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/orayaprolu/spot-arb/internal/domain"
)

// VenueName identifies CoinEx in canonical events and log context.
const VenueName = "coinex"

// DefaultWSURL is the CoinEx v2 spot WebSocket endpoint.
const DefaultWSURL = "wss://socket.coinex.com/v2/spot"

const (
	// writeWait bounds every WebSocket write.
	writeWait = 10 * time.Second

	// keepaliveInterval is the server.ping cadence.
	keepaliveInterval = 3 * time.Second

	// sessionTTL bounds a session's lifetime regardless of health, so a
	// connection that looks alive but has stopped delivering data is torn
	// down and rebuilt.
	sessionTTL = time.Hour

	// reconnectPause is the delay between session teardown and resubscribe.
	reconnectPause = 2 * time.Second

	// eventBuffer is the per-type channel capacity.
	eventBuffer = 1024
)

// Feed owns a single persistent connection to CoinEx for one market and
// translates venue wire messages into canonical events. Every update is
// delivered through the per-type channels in venue order; the latest quote
// is additionally cached for pull access.
type Feed struct {
	wsURL  string
	market string
	logger *slog.Logger

	quoteCh chan domain.Quote
	tradeCh chan domain.Trade
	depthCh chan domain.DepthSnapshot

	mu     sync.RWMutex
	latest domain.Quote
	seen   bool
}

var _ domain.StreamingFeed = (*Feed)(nil)

// NewFeed creates a streaming feed for the given pair (e.g. "XEC-USDT").
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
		quoteCh: make(chan domain.Quote, eventBuffer),
		tradeCh: make(chan domain.Trade, eventBuffer),
		depthCh: make(chan domain.DepthSnapshot, eventBuffer),
	}
}

// Venue implements domain.QuoteSource.
func (f *Feed) Venue() string { return VenueName }

// Market returns the venue-formatted market identifier.
func (f *Feed) Market() string { return f.market }

// Quotes is the FIFO channel of best-bid/ask updates.
func (f *Feed) Quotes() <-chan domain.Quote { return f.quoteCh }

// Trades is the FIFO channel of trade prints.
func (f *Feed) Trades() <-chan domain.Trade { return f.tradeCh }

// Depth is the FIFO channel of full depth snapshots.
func (f *Feed) Depth() <-chan domain.DepthSnapshot { return f.depthCh }

// LatestQuote returns the most recent quote and whether one has arrived yet.
func (f *Feed) LatestQuote() (domain.Quote, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.latest, f.seen
}

// Run connects, subscribes, and streams until ctx is cancelled. Each session
// is bounded by sessionTTL; on session end (failure or ceiling) the transport
// is closed and the cycle restarts after a short pause. A failed subscription
// handshake is fatal and returned to the caller; the supervisor owns retrying
// that condition.
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

// runSession executes one connect/subscribe/stream cycle. It returns nil when
// the session should simply be restarted, and an error only on the fatal
// connect/subscribe path.
func (f *Feed) runSession(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("coinex: connect: %w: %w", domain.ErrSubscribeFailed, err)
	}
	defer conn.Close()
	f.logger.Info("connected to websocket")

	subscriptions := []wsRequest{
		{Method: "bbo.subscribe", Params: map[string]any{"market_list": []string{f.market}}, ID: 1},
		{Method: "deals.subscribe", Params: map[string]any{"market_list": []string{f.market}}, ID: 1},
		// 5 levels, no price merge, full snapshots.
		{Method: "depth.subscribe", Params: map[string]any{"market_list": []any{[]any{f.market, 5, "0", true}}}, ID: 1},
	}
	for _, sub := range subscriptions {
		if err := f.subscribe(conn, sub); err != nil {
			return fmt.Errorf("coinex: %s: %w: %w", sub.Method, domain.ErrSubscribeFailed, err)
		}
		f.logger.Info("subscribed", slog.String("channel", sub.Method))
	}

	// One failure from either task ends the session.
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

// subscribe sends one subscription request and reads its acknowledgement
// frame. Ack contents are not inspected beyond being readable.
func (f *Feed) subscribe(conn *websocket.Conn, req wsRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return err
	}

	conn.SetReadDeadline(time.Now().Add(writeWait))
	_, _, err = conn.ReadMessage()
	conn.SetReadDeadline(time.Time{})
	return err
}

// keepalive sends server.ping on a fixed cadence. It returns when the
// connection is no longer usable or the session ends.
func (f *Feed) keepalive(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	ping, _ := json.Marshal(wsRequest{Method: "server.ping", Params: map[string]any{}, ID: 1})
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

// readLoop reads frames until the transport fails or the session ends.
// Binary frames are gunzipped then dispatched; text frames (handshake acks,
// pong replies) are ignored.
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

		decompressed, err := gunzip(raw)
		if err != nil {
			f.logger.Warn("dropping undecodable frame", slog.String("error", err.Error()))
			continue
		}
		f.dispatch(decompressed)
	}
}

// dispatch decodes one decompressed frame and pushes the resulting canonical
// events. A malformed frame is skipped; the stream continues.
func (f *Feed) dispatch(raw []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		f.logger.Warn("dropping malformed frame", slog.String("error", err.Error()))
		return
	}

	switch kindOf(env.Method) {
	case kindQuote:
		var p bboPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			f.logger.Warn("dropping bad bbo payload", slog.String("error", err.Error()))
			return
		}
		quote, err := quoteFromPayload(p)
		if err != nil {
			f.logger.Warn("dropping bad bbo payload", slog.String("error", err.Error()))
			return
		}
		f.setLatest(quote)
		pushEvent(f, f.quoteCh, quote, "quote")

	case kindTrades:
		var p dealsPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			f.logger.Warn("dropping bad deals payload", slog.String("error", err.Error()))
			return
		}
		trades, err := tradesFromPayload(p)
		if err != nil {
			f.logger.Warn("dropping bad deals payload", slog.String("error", err.Error()))
			return
		}
		for _, t := range trades {
			pushEvent(f, f.tradeCh, t, "trade")
		}

	case kindDepth:
		var p depthPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			f.logger.Warn("dropping bad depth payload", slog.String("error", err.Error()))
			return
		}
		snap, err := depthFromPayload(p)
		if err != nil {
			f.logger.Warn("dropping bad depth payload", slog.String("error", err.Error()))
			return
		}
		pushEvent(f, f.depthCh, snap, "depth")

	default:
		f.logger.Warn("dropping frame with unknown method", slog.String("method", env.Method))
	}
}

// setLatest is the single writer of the cached quote.
func (f *Feed) setLatest(q domain.Quote) {
	if q.Crossed() {
		f.logger.Warn("crossed quote from venue",
			slog.Float64("bid", q.BestBidPrice),
			slog.Float64("ask", q.BestAskPrice),
		)
	}
	f.mu.Lock()
	f.latest = q
	f.seen = true
	f.mu.Unlock()
}

// pushEvent delivers one event without stalling the read loop. The
// latest-quote cache is updated before any push, so pull-only consumers never
// starve the stream; a full channel means no consumer is draining and the
// event is shed.
func pushEvent[T any](f *Feed, ch chan T, ev T, what string) {
	select {
	case ch <- ev:
	default:
		f.logger.Debug("event channel full, shedding", slog.String("type", what))
	}
}

// gunzip decompresses one gzip-compressed frame.
func gunzip(raw []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
