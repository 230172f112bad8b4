// Package dhan implements the equities broker adapter backed by the Dhan
// trading API (bearer-token authentication).
package dhan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/infinityai/tradebot/internal/domain"
)

// DefaultBaseURL is the production Dhan API root.
const DefaultBaseURL = "https://api.dhan.co"

// Client is the REST client for the Dhan API.
type Client struct {
	baseURL     string
	clientID    string
	accessToken string
	httpClient  *http.Client
}

// NewClient creates a new Dhan REST client. An empty baseURL falls back to
// the production endpoint.
func NewClient(baseURL, clientID, accessToken string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		clientID:    clientID,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient replaces the underlying HTTP client (used in tests).
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// FundLimit fetches the account fund limits. It doubles as the cheapest
// authenticated probe for Initialize.
func (c *Client) FundLimit(ctx context.Context) (FundLimit, error) {
	body, err := c.do(ctx, http.MethodGet, "/v2/fundlimit", nil)
	if err != nil {
		return FundLimit{}, fmt.Errorf("dhan: fund limit: %w", err)
	}

	var fl FundLimit
	if err := json.Unmarshal(body, &fl); err != nil {
		return FundLimit{}, fmt.Errorf("dhan: decode fund limit: %w", err)
	}
	return fl, nil
}

// PlaceOrder submits a new order.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResponse, error) {
	body, err := c.do(ctx, http.MethodPost, "/v2/orders", req)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("dhan: place order: %w", err)
	}

	var resp OrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return OrderResponse{}, fmt.Errorf("dhan: decode order response: %w", err)
	}
	return resp, nil
}

// CancelOrder cancels an existing order by its ID.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (OrderResponse, error) {
	path := "/v2/orders/" + url.PathEscape(orderID)

	body, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("dhan: cancel order %s: %w", orderID, err)
	}

	var resp OrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return OrderResponse{}, fmt.Errorf("dhan: decode cancel response: %w", err)
	}
	return resp, nil
}

// Orders lists the orders of the current trading day.
func (c *Client) Orders(ctx context.Context) ([]OrderDetail, error) {
	body, err := c.do(ctx, http.MethodGet, "/v2/orders", nil)
	if err != nil {
		return nil, fmt.Errorf("dhan: get orders: %w", err)
	}

	var orders []OrderDetail
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, fmt.Errorf("dhan: decode orders: %w", err)
	}
	return orders, nil
}

// Positions lists the open intraday positions.
func (c *Client) Positions(ctx context.Context) ([]PositionDetail, error) {
	body, err := c.do(ctx, http.MethodGet, "/v2/positions", nil)
	if err != nil {
		return nil, fmt.Errorf("dhan: get positions: %w", err)
	}

	var positions []PositionDetail
	if err := json.Unmarshal(body, &positions); err != nil {
		return nil, fmt.Errorf("dhan: decode positions: %w", err)
	}
	return positions, nil
}

// Holdings lists the demat holdings.
func (c *Client) Holdings(ctx context.Context) ([]Holding, error) {
	body, err := c.do(ctx, http.MethodGet, "/v2/holdings", nil)
	if err != nil {
		return nil, fmt.Errorf("dhan: get holdings: %w", err)
	}

	var holdings []Holding
	if err := json.Unmarshal(body, &holdings); err != nil {
		return nil, fmt.Errorf("dhan: decode holdings: %w", err)
	}
	return holdings, nil
}

// MarketFeed fetches the latest quote for a symbol.
func (c *Client) MarketFeed(ctx context.Context, symbol string) (MarketFeed, error) {
	path := "/v2/marketfeed/" + url.PathEscape(symbol)

	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return MarketFeed{}, fmt.Errorf("dhan: market feed %s: %w", symbol, err)
	}

	var feed MarketFeed
	if err := json.Unmarshal(body, &feed); err != nil {
		return MarketFeed{}, fmt.Errorf("dhan: decode market feed: %w", err)
	}
	return feed, nil
}

// Charts fetches historical candles. The API returns rows of
// [epoch_ms, open, high, low, close, volume].
func (c *Client) Charts(ctx context.Context, symbol, interval string, from, to time.Time) ([][]float64, error) {
	params := url.Values{}
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))
	params.Set("interval", interval)

	path := "/v2/charts/" + url.PathEscape(symbol) + "?" + params.Encode()

	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("dhan: charts %s: %w", symbol, err)
	}

	var rows [][]float64
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("dhan: decode charts: %w", err)
	}
	return rows, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// do builds, sends, and reads an authenticated HTTP request against the Dhan
// API. A single attempt, no retry.
func (c *Client) do(ctx context.Context, method, path string, reqBody any) ([]byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

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

	return respBody, nil
}

// checkStatus maps non-2xx HTTP status codes to domain errors.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr ErrorResponse
	_ = json.Unmarshal(body, &apiErr)
	msg := apiErr.ErrorMessage
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
