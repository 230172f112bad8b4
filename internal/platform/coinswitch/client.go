package coinswitch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/infinityai/tradebot/internal/crypto"
	"github.com/infinityai/tradebot/internal/domain"
)

// DefaultBaseURL is the production CoinSwitch trading API root.
const DefaultBaseURL = "https://api-trading.coinswitch.co"

// Kline is a normalized OHLCV row from the klines endpoint.
type Kline struct {
	Start  int64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Client is the REST client for the CoinSwitch trading API. Every request is
// HMAC-signed over the path and its timestamped parameters.
type Client struct {
	baseURL    string
	auth       crypto.HMACAuth
	httpClient *http.Client
}

// NewClient creates a new CoinSwitch REST client. An empty baseURL falls
// back to the production endpoint.
func NewClient(baseURL string, auth crypto.HMACAuth) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient replaces the underlying HTTP client (used in tests).
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// Ping checks API reachability.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodGet, "/trade/api/v2/ping", nil); err != nil {
		return fmt.Errorf("coinswitch: ping: %w", err)
	}
	return nil
}

// ValidateKeys verifies the configured API key pair.
func (c *Client) ValidateKeys(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodGet, "/trade/api/v2/validate/keys", nil); err != nil {
		return fmt.Errorf("coinswitch: validate keys: %w", err)
	}
	return nil
}

// CreateOrder places a limit or market order.
func (c *Client) CreateOrder(ctx context.Context, symbol, side, orderType string, quantity, price float64) (OrderData, error) {
	params := map[string]string{
		"symbol":   symbol,
		"side":     strings.ToLower(side),
		"type":     strings.ToLower(orderType),
		"quantity": formatFloat(quantity),
	}
	if price > 0 {
		params["price"] = formatFloat(price)
	}

	data, err := c.do(ctx, http.MethodPost, "/trade/api/v2/order", params)
	if err != nil {
		return OrderData{}, fmt.Errorf("coinswitch: create order: %w", err)
	}

	var order OrderData
	if err := json.Unmarshal(data, &order); err != nil {
		return OrderData{}, fmt.Errorf("coinswitch: decode order: %w", err)
	}
	return order, nil
}

// CancelOrder cancels an open order by its ID.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (OrderData, error) {
	params := map[string]string{"order_id": orderID}

	data, err := c.do(ctx, http.MethodDelete, "/trade/api/v2/order", params)
	if err != nil {
		return OrderData{}, fmt.Errorf("coinswitch: cancel order %s: %w", orderID, err)
	}

	var order OrderData
	if err := json.Unmarshal(data, &order); err != nil {
		return OrderData{}, fmt.Errorf("coinswitch: decode cancel: %w", err)
	}
	return order, nil
}

// Orders lists the account's orders.
func (c *Client) Orders(ctx context.Context) ([]OrderData, error) {
	data, err := c.do(ctx, http.MethodGet, "/trade/api/v2/orders", nil)
	if err != nil {
		return nil, fmt.Errorf("coinswitch: get orders: %w", err)
	}

	var orders []OrderData
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("coinswitch: decode orders: %w", err)
	}
	return orders, nil
}

// Portfolio lists all asset balances.
func (c *Client) Portfolio(ctx context.Context) ([]Balance, error) {
	data, err := c.do(ctx, http.MethodGet, "/trade/api/v2/user/portfolio", nil)
	if err != nil {
		return nil, fmt.Errorf("coinswitch: get portfolio: %w", err)
	}

	var balances []Balance
	if err := json.Unmarshal(data, &balances); err != nil {
		return nil, fmt.Errorf("coinswitch: decode portfolio: %w", err)
	}
	return balances, nil
}

// Ticker fetches 24hr statistics for a trading pair.
func (c *Client) Ticker(ctx context.Context, symbol string) (Ticker, error) {
	params := map[string]string{"symbol": symbol}

	data, err := c.do(ctx, http.MethodGet, "/trade/api/v2/24hr/ticker", params)
	if err != nil {
		return Ticker{}, fmt.Errorf("coinswitch: ticker %s: %w", symbol, err)
	}

	var t Ticker
	if err := json.Unmarshal(data, &t); err != nil {
		return Ticker{}, fmt.Errorf("coinswitch: decode ticker: %w", err)
	}
	return t, nil
}

// Klines fetches OHLCV history rows for a trading pair.
func (c *Client) Klines(ctx context.Context, symbol, interval string, start, end time.Time, limit int) ([]Kline, error) {
	params := map[string]string{
		"symbol":    symbol,
		"interval":  interval,
		"startTime": strconv.FormatInt(start.UnixMilli(), 10),
		"endTime":   strconv.FormatInt(end.UnixMilli(), 10),
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}

	data, err := c.do(ctx, http.MethodGet, "/trade/api/v2/klines", params)
	if err != nil {
		return nil, fmt.Errorf("coinswitch: klines %s: %w", symbol, err)
	}

	var rows [][]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("coinswitch: decode klines: %w", err)
	}

	klines := make([]Kline, 0, len(rows))
	for _, r := range rows {
		if len(r) < 6 {
			continue
		}
		klines = append(klines, Kline{
			Start:  int64(coerceFloat(r[0])),
			Open:   coerceFloat(r[1]),
			High:   coerceFloat(r[2]),
			Low:    coerceFloat(r[3]),
			Close:  coerceFloat(r[4]),
			Volume: coerceFloat(r[5]),
		})
	}
	return klines, nil
}

// Depth fetches the order book snapshot for a trading pair.
func (c *Client) Depth(ctx context.Context, symbol string) (Depth, error) {
	params := map[string]string{"symbol": symbol}

	data, err := c.do(ctx, http.MethodGet, "/trade/api/v2/depth", params)
	if err != nil {
		return Depth{}, fmt.Errorf("coinswitch: depth %s: %w", symbol, err)
	}

	var d Depth
	if err := json.Unmarshal(data, &d); err != nil {
		return Depth{}, fmt.Errorf("coinswitch: decode depth: %w", err)
	}
	return d, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// do signs and sends one request, unwraps the response envelope, and returns
// the inner data payload. GET requests carry their parameters in the query
// string, everything else in a JSON body; the signature covers the same
// parameter set either way.
func (c *Client) do(ctx context.Context, method, path string, params map[string]string) (json.RawMessage, error) {
	stamped := crypto.Stamp(params)
	headers := c.auth.Headers(path, stamped)

	reqURL := c.baseURL + path
	var bodyReader io.Reader
	if method == http.MethodGet {
		if len(stamped) > 0 {
			reqURL += "?" + encodeQuery(stamped)
		}
	} else {
		jsonBody, err := json.Marshal(stamped)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
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

	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	var envelope apiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.Code != 0 && envelope.Code != http.StatusOK {
		return nil, fmt.Errorf("API code %d: %s", envelope.Code, envelope.Msg)
	}

	return envelope.Data, nil
}

// checkStatus maps non-2xx HTTP status codes to domain errors.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var envelope apiResponse
	_ = json.Unmarshal(body, &envelope)
	msg := envelope.Msg
	if msg == "" {
		msg = string(body)
	}

	switch {
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, msg)
	case statusCode >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrPlatformDown, statusCode, msg)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, msg)
	}
}

// encodeQuery builds the query string with keys in the same sorted order the
// signature canonicalizes, so the server verifies against identical input.
func encodeQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}

// coerceFloat accepts the number-or-string values CoinSwitch mixes freely in
// kline rows.
func coerceFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	case json.Number:
		f, _ := x.Float64()
		return f
	default:
		return 0
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// parseFloat converts the string-typed numeric fields, treating empty as
// zero.
func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
