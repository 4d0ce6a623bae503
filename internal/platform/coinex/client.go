package coinex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orayaprolu/spot-arb/internal/crypto"
	"github.com/orayaprolu/spot-arb/internal/domain"
)

// DefaultBaseURL is the CoinEx v2 REST root.
const DefaultBaseURL = "https://api.coinex.com"

// Client is the signed REST client for CoinEx spot trading. It implements
// domain.TradingClient.
type Client struct {
	baseURL    string
	signer     *crypto.Signer
	httpClient *http.Client
}

var _ domain.TradingClient = (*Client)(nil)

// NewClient creates a CoinEx trading client. An empty baseURL selects the
// production endpoint.
func NewClient(baseURL, accessID, secretKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		signer:  &crypto.Signer{AccessID: accessID, SecretKey: secretKey},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// PlaceOrder submits a spot limit order. The hidden flag maps to the
// exchange's iceberg option; the order does not show in public depth.
func (c *Client) PlaceOrder(ctx context.Context, market string, side domain.OrderSide, amount, price float64, hidden bool) (domain.RestingOrder, error) {
	body := map[string]any{
		"market":      normalizeMarket(market),
		"market_type": "SPOT",
		"side":        string(side),
		"type":        "limit",
		"amount":      strconv.FormatFloat(amount, 'f', -1, 64),
		"price":       strconv.FormatFloat(price, 'f', -1, 64),
		"client_id":   "spotarb-" + uuid.NewString(),
	}
	if hidden {
		body["is_hide"] = true
	}

	respBody, err := c.doSignedRequest(ctx, http.MethodPost, "/v2/spot/order", nil, body)
	if err != nil {
		return domain.RestingOrder{}, fmt.Errorf("coinex: place order: %w", err)
	}

	var data orderData
	if err := json.Unmarshal(respBody, &data); err != nil {
		return domain.RestingOrder{}, fmt.Errorf("coinex: decode order response: %w", err)
	}
	order, err := restingOrderFromData(data, hidden)
	if err != nil {
		return domain.RestingOrder{}, fmt.Errorf("coinex: place order: %w", err)
	}
	return order, nil
}

// CancelAllOrders cancels every open order for the market.
func (c *Client) CancelAllOrders(ctx context.Context, market string) error {
	body := map[string]any{
		"market":      normalizeMarket(market),
		"market_type": "SPOT",
	}
	if _, err := c.doSignedRequest(ctx, http.MethodPost, "/v2/spot/cancel-all-order", nil, body); err != nil {
		return fmt.Errorf("coinex: cancel all orders: %w", err)
	}
	return nil
}

// CancelOrder cancels a single order by its exchange-assigned ID.
func (c *Client) CancelOrder(ctx context.Context, market, orderID string) error {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return fmt.Errorf("coinex: cancel order: bad order ID %q: %w", orderID, domain.ErrInvalidInput)
	}
	body := map[string]any{
		"market":      normalizeMarket(market),
		"market_type": "SPOT",
		"order_id":    id,
	}
	if _, err := c.doSignedRequest(ctx, http.MethodPost, "/v2/spot/cancel-order", nil, body); err != nil {
		return fmt.Errorf("coinex: cancel order %s: %w", orderID, err)
	}
	return nil
}

// OrderStatus refreshes one order's fill state from the exchange.
func (c *Client) OrderStatus(ctx context.Context, market, orderID string) (domain.RestingOrder, error) {
	params := url.Values{}
	params.Set("market", normalizeMarket(market))
	params.Set("order_id", orderID)

	respBody, err := c.doSignedRequest(ctx, http.MethodGet, "/v2/spot/order-status", params, nil)
	if err != nil {
		return domain.RestingOrder{}, fmt.Errorf("coinex: order status %s: %w", orderID, err)
	}

	var data orderData
	if err := json.Unmarshal(respBody, &data); err != nil {
		return domain.RestingOrder{}, fmt.Errorf("coinex: decode order status: %w", err)
	}
	order, err := restingOrderFromData(data, false)
	if err != nil {
		return domain.RestingOrder{}, fmt.Errorf("coinex: order status %s: %w", orderID, err)
	}
	return order, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// normalizeMarket converts "XEC-USDT" to the venue's "XECUSDT" form.
func normalizeMarket(market string) string {
	return strings.ReplaceAll(market, "-", "")
}

// doSignedRequest builds, signs, sends, and reads a CoinEx REST request,
// returning the envelope's data payload.
func (c *Client) doSignedRequest(ctx context.Context, method, path string, params url.Values, reqBody any) ([]byte, error) {
	query := ""
	if len(params) > 0 {
		query = "?" + params.Encode()
	}

	bodyStr := ""
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyStr = string(jsonBody)
	}

	var bodyReader io.Reader
	if bodyStr != "" {
		bodyReader = bytes.NewReader([]byte(bodyStr))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+query, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.signer.Headers(method, path, query, bodyStr) {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var envelope apiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.Code != 0 {
		return nil, fmt.Errorf("code %d: %s: %w", envelope.Code, envelope.Message, domain.ErrOrderRejected)
	}
	return envelope.Data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
