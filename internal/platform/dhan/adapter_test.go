package dhan

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/infinityai/tradebot/internal/domain"
)

func TestAdapterPlaceOrderFillsIntradayDefaults(t *testing.T) {
	var sent OrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &sent)
		w.Write([]byte(`{"orderId":"42","orderStatus":"TRANSIT"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "client-1", "tok")
	client.SetHTTPClient(srv.Client())
	adapter := NewAdapter(client, "client-1")

	result, err := adapter.PlaceOrder(context.Background(), domain.Order{
		Broker:   domain.BrokerDhan,
		Symbol:   "RELIANCE",
		Side:     domain.OrderSideBuy,
		Quantity: 5,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if sent.ExchangeSegment != "NSE_EQ" {
		t.Errorf("ExchangeSegment = %q, want NSE_EQ", sent.ExchangeSegment)
	}
	if sent.ProductType != "INTRADAY" {
		t.Errorf("ProductType = %q, want INTRADAY", sent.ProductType)
	}
	if sent.Validity != "DAY" {
		t.Errorf("Validity = %q, want DAY", sent.Validity)
	}
	if sent.OrderType != string(domain.OrderTypeMarket) {
		t.Errorf("OrderType = %q, want market for a zero-price order", sent.OrderType)
	}
	if sent.SecurityID != "RELIANCE" {
		t.Errorf("SecurityID = %q, symbol not used as fallback", sent.SecurityID)
	}
	if sent.TransactionType != "BUY" {
		t.Errorf("TransactionType = %q, want BUY", sent.TransactionType)
	}

	if result.OrderID != "42" || result.Status != domain.OrderStatusTransit {
		t.Errorf("result = %+v", result)
	}
}

func TestAdapterOrdersNormalization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"orderId":"1","tradingSymbol":"RELIANCE","transactionType":"BUY","quantity":10,"price":2500,"orderStatus":"TRADED","orderTimestamp":"2025-01-06T10:15:00"},
			{"orderId":"2","securityId":"SEC2","transactionType":"SELL","quantity":3,"price":100,"orderStatus":"PENDING","orderTimestamp":"garbage"}
		]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "client-1", "tok")
	client.SetHTTPClient(srv.Client())
	adapter := NewAdapter(client, "client-1")

	records, err := adapter.Orders(context.Background())
	if err != nil {
		t.Fatalf("Orders: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	first := records[0]
	if first.Symbol != "RELIANCE" || first.Side != domain.OrderSideBuy || first.Status != domain.OrderStatusCompleted {
		t.Errorf("first record = %+v", first)
	}
	want := time.Date(2025, 1, 6, 10, 15, 0, 0, time.UTC)
	if !first.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", first.CreatedAt, want)
	}

	second := records[1]
	if second.Symbol != "SEC2" {
		t.Errorf("Symbol = %q, security id not used as fallback", second.Symbol)
	}
	if !second.CreatedAt.IsZero() {
		t.Errorf("CreatedAt = %v, want zero for an unparseable timestamp", second.CreatedAt)
	}
}

func TestAdapterPortfolioMergesPositionsAndHoldings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/positions":
			w.Write([]byte(`[
				{"tradingSymbol":"RELIANCE","netQty":10,"costPrice":2400,"lastTradedPrice":2500,"realizedProfit":0,"unrealizedProfit":1000},
				{"tradingSymbol":"FLAT","netQty":0,"costPrice":1,"lastTradedPrice":1}
			]`))
		case "/v2/holdings":
			w.Write([]byte(`[{"tradingSymbol":"TCS","totalQty":2,"avgCostPrice":3000,"lastPrice":3300}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "client-1", "tok")
	client.SetHTTPClient(srv.Client())
	adapter := NewAdapter(client, "client-1")

	positions, err := adapter.Portfolio(context.Background())
	if err != nil {
		t.Fatalf("Portfolio: %v", err)
	}
	if len(positions) != 2 {
		t.Fatalf("got %d positions, want 2 (flat position skipped)", len(positions))
	}

	intra := positions[0]
	if intra.Symbol != "RELIANCE" || intra.Value != 25000 || intra.PnL != 1000 {
		t.Errorf("intraday position = %+v", intra)
	}

	held := positions[1]
	if held.Symbol != "TCS" || held.PnL != 600 || held.Value != 6600 {
		t.Errorf("holding = %+v", held)
	}
	if held.PnLPercentage != 10 {
		t.Errorf("PnLPercentage = %v, want 10", held.PnLPercentage)
	}
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]domain.OrderStatus{
		"TRANSIT":   domain.OrderStatusTransit,
		"PENDING":   domain.OrderStatusPending,
		"OPEN":      domain.OrderStatusOpen,
		"TRADED":    domain.OrderStatusCompleted,
		"COMPLETE":  domain.OrderStatusCompleted,
		"CANCELLED": domain.OrderStatusCancelled,
		"REJECTED":  domain.OrderStatusRejected,
		"Weird":     domain.OrderStatus("weird"),
	}
	for in, want := range cases {
		if got := normalizeStatus(in); got != want {
			t.Errorf("normalizeStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestChartIntervalFallback(t *testing.T) {
	if got := chartInterval("5m"); got != "5" {
		t.Errorf("chartInterval(5m) = %q", got)
	}
	if got := chartInterval(""); got != "D" {
		t.Errorf("chartInterval(empty) = %q", got)
	}
	if got := chartInterval("3h"); got != "D" {
		t.Errorf("chartInterval(unknown) = %q", got)
	}
}
