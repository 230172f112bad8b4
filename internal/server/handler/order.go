package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/infinityai/tradebot/internal/domain"
	"github.com/infinityai/tradebot/internal/service"
)

// OrderHandler exposes order placement, cancellation, listing, quotes, and
// the emergency stop.
type OrderHandler struct {
	orders *service.OrderService
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler backed by the order service.
func NewOrderHandler(orders *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logHandler(logger, "order"),
	}
}

// placeOrderRequest is the inbound order shape. The broker-specific fields are
// optional; adapters fill in their own defaults.
type placeOrderRequest struct {
	Broker          string  `json:"broker"`
	Symbol          string  `json:"symbol"`
	Side            string  `json:"side"`
	Quantity        float64 `json:"quantity"`
	Price           float64 `json:"price,omitempty"`
	OrderType       string  `json:"order_type,omitempty"`
	ExchangeSegment string  `json:"exchange_segment,omitempty"`
	ProductType     string  `json:"product_type,omitempty"`
	Validity        string  `json:"validity,omitempty"`
	SecurityID      string  `json:"security_id,omitempty"`
	TriggerPrice    float64 `json:"trigger_price,omitempty"`
}

// PlaceOrder validates and routes an order to its broker.
// POST /api/v1/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	orderType := domain.OrderType(req.OrderType)
	if orderType == "" {
		orderType = domain.OrderTypeLimit
		if req.Price == 0 {
			orderType = domain.OrderTypeMarket
		}
	}

	order := domain.Order{
		Broker:          domain.BrokerName(req.Broker),
		Symbol:          req.Symbol,
		Side:            domain.OrderSide(req.Side),
		Quantity:        req.Quantity,
		Price:           req.Price,
		Type:            orderType,
		ExchangeSegment: req.ExchangeSegment,
		ProductType:     req.ProductType,
		Validity:        req.Validity,
		SecurityID:      req.SecurityID,
		TriggerPrice:    req.TriggerPrice,
	}

	result, err := h.orders.PlaceOrder(r.Context(), order)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"broker": req.Broker,
		"result": result,
	})
}

// CancelOrder cancels a single order at its broker.
// DELETE /api/v1/orders/{broker}/{id}
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	broker := domain.BrokerName(pathParam(r, "broker"))
	orderID := pathParam(r, "id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "order id is required")
		return
	}

	result, err := h.orders.CancelOrder(r.Context(), broker, orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"broker": string(broker),
		"result": result,
	})
}

// ListOrders returns the broker's view of its orders.
// GET /api/v1/orders/{broker}
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	broker := domain.BrokerName(pathParam(r, "broker"))

	orders, err := h.orders.ListOrders(r.Context(), broker)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"broker": string(broker),
		"orders": orders,
		"count":  len(orders),
	})
}

// GetQuote returns the latest quote for a symbol at a broker.
// GET /api/v1/quotes/{broker}/{symbol}
func (h *OrderHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	broker := domain.BrokerName(pathParam(r, "broker"))
	symbol := pathParam(r, "symbol")

	quote, err := h.orders.Quote(r.Context(), broker, symbol)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

// GetCandles returns OHLCV history for a symbol at a broker. The interval
// query parameter defaults to daily bars and days caps the trailing window.
// GET /api/v1/candles/{broker}/{symbol}
func (h *OrderHandler) GetCandles(w http.ResponseWriter, r *http.Request) {
	broker := domain.BrokerName(pathParam(r, "broker"))
	symbol := pathParam(r, "symbol")

	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "1d"
	}
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	candles, err := h.orders.Candles(r.Context(), broker, symbol, interval, days)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"broker":   string(broker),
		"symbol":   symbol,
		"interval": interval,
		"candles":  candles,
		"count":    len(candles),
	})
}

// EmergencyStop cancels every cancelable order on every configured broker and
// returns the per-attempt report. Always 200: failures live inside the report.
// POST /api/v1/emergency-stop
func (h *OrderHandler) EmergencyStop(w http.ResponseWriter, r *http.Request) {
	report := h.orders.EmergencyStop(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"report": report,
		"count":  len(report),
	})
}
