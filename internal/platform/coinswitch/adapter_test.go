package coinswitch

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/infinityai/tradebot/internal/crypto"
	"github.com/infinityai/tradebot/internal/domain"
)

func TestAdapterOrdersParsesStringNumerics(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"data":[
			{"orderId":"o1","symbol":"BTCINR","side":"BUY","status":"PARTIALLY_EXECUTED","origQty":"0.25","price":"4500000","time":1700000000000}
		]}`))
	})
	adapter := NewAdapter(client)

	records, err := adapter.Orders(context.Background())
	if err != nil {
		t.Fatalf("Orders: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if rec.Side != domain.OrderSideBuy || rec.Quantity != 0.25 || rec.Price != 4500000 {
		t.Errorf("record = %+v", rec)
	}
	if rec.Status != domain.OrderStatusOpen {
		t.Errorf("Status = %q, partial execution should map to open", rec.Status)
	}
	if want := time.UnixMilli(1700000000000).UTC(); !rec.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", rec.CreatedAt, want)
	}
}

func TestAdapterPortfolioSkipsEmptyBalances(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"data":[
			{"asset":"btc","free":"0.5","locked":"0.1"},
			{"asset":"eth","free":"0","locked":""}
		]}`))
	})
	adapter := NewAdapter(client)

	positions, err := adapter.Portfolio(context.Background())
	if err != nil {
		t.Fatalf("Portfolio: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("got %d positions, want 1 (zero balance skipped)", len(positions))
	}
	if positions[0].Symbol != "BTCINR" {
		t.Errorf("Symbol = %q, want BTCINR", positions[0].Symbol)
	}
	if positions[0].Quantity != 0.6 {
		t.Errorf("Quantity = %v, want free+locked = 0.6", positions[0].Quantity)
	}
}

func TestAdapterQuote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"data":{"symbol":"BTCINR","lastPrice":"4500000","priceChange":"-1500","priceChangePercent":"-0.03","volume":"10","highPrice":"4600000","lowPrice":"4400000"}}`))
	})
	adapter := NewAdapter(client)

	quote, err := adapter.Quote(context.Background(), "BTCINR")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.Price != 4500000 || quote.Change != -1500 || quote.High != 4600000 {
		t.Errorf("quote = %+v", quote)
	}
}

func TestAdapterSupports(t *testing.T) {
	adapter := NewAdapter(NewClient("", crypto.HMACAuth{}))
	if !adapter.Supports(domain.AssetCrypto) {
		t.Error("crypto should be supported")
	}
	if adapter.Supports(domain.AssetEquity) {
		t.Error("equity should not be supported")
	}
	if adapter.Name() != domain.BrokerCoinSwitch {
		t.Errorf("Name = %q", adapter.Name())
	}
}

func TestNormalizeStatusCrypto(t *testing.T) {
	cases := map[string]domain.OrderStatus{
		"OPEN":      domain.OrderStatusOpen,
		"EXECUTED":  domain.OrderStatusCompleted,
		"EXPIRED":   domain.OrderStatusCancelled,
		"DISCARDED": domain.OrderStatusRejected,
		"odd":       domain.OrderStatus("odd"),
	}
	for in, want := range cases {
		if got := normalizeStatus(in); got != want {
			t.Errorf("normalizeStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKlineIntervalFallback(t *testing.T) {
	if got := klineInterval("1h"); got != "60" {
		t.Errorf("klineInterval(1h) = %q", got)
	}
	if got := klineInterval(""); got != "1440" {
		t.Errorf("klineInterval(empty) = %q", got)
	}
	if got := klineInterval("2w"); got != "1440" {
		t.Errorf("klineInterval(unknown) = %q", got)
	}
}
