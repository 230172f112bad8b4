package dhan

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/infinityai/tradebot/internal/domain"
)

// recordedRequest captures what the client actually sent so assertions can
// run after the server handler returns.
type recordedRequest struct {
	method string
	path   string
	query  string
	auth   string
	body   []byte
}

func newTestClient(t *testing.T, status int, response string, rec *recordedRequest) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rec != nil {
			rec.method = r.Method
			rec.path = r.URL.Path
			rec.query = r.URL.RawQuery
			rec.auth = r.Header.Get("Authorization")
			rec.body, _ = io.ReadAll(r.Body)
		}
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "client-1", "token-abc")
	client.SetHTTPClient(srv.Client())
	return client
}

func TestFundLimitAuthAndPath(t *testing.T) {
	var rec recordedRequest
	client := newTestClient(t, http.StatusOK, `{"dhanClientId":"client-1","availabelBalance":5000}`, &rec)

	fl, err := client.FundLimit(context.Background())
	if err != nil {
		t.Fatalf("FundLimit: %v", err)
	}
	if rec.method != http.MethodGet || rec.path != "/v2/fundlimit" {
		t.Errorf("request = %s %s, want GET /v2/fundlimit", rec.method, rec.path)
	}
	if rec.auth != "Bearer token-abc" {
		t.Errorf("Authorization = %q, want bearer token", rec.auth)
	}
	if fl.AvailableBalance != 5000 {
		t.Errorf("AvailableBalance = %v, want 5000", fl.AvailableBalance)
	}
}

func TestPlaceOrderSendsJSONBody(t *testing.T) {
	var rec recordedRequest
	client := newTestClient(t, http.StatusOK, `{"orderId":"112","orderStatus":"PENDING"}`, &rec)

	resp, err := client.PlaceOrder(context.Background(), OrderRequest{
		DhanClientID:    "client-1",
		TransactionType: "BUY",
		ExchangeSegment: "NSE_EQ",
		OrderType:       "LIMIT",
		SecurityID:      "RELIANCE",
		Quantity:        10,
		Price:           2500,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if rec.method != http.MethodPost || rec.path != "/v2/orders" {
		t.Errorf("request = %s %s, want POST /v2/orders", rec.method, rec.path)
	}

	var sent OrderRequest
	if err := json.Unmarshal(rec.body, &sent); err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if sent.SecurityID != "RELIANCE" || sent.Quantity != 10 || sent.Price != 2500 {
		t.Errorf("sent body = %+v", sent)
	}
	if resp.OrderID != "112" {
		t.Errorf("OrderID = %q, want 112", resp.OrderID)
	}
}

func TestCancelOrderEscapesID(t *testing.T) {
	var rec recordedRequest
	client := newTestClient(t, http.StatusOK, `{"orderId":"o/1","orderStatus":"CANCELLED"}`, &rec)

	if _, err := client.CancelOrder(context.Background(), "o/1"); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if rec.method != http.MethodDelete {
		t.Errorf("method = %s, want DELETE", rec.method)
	}
	if rec.path != "/v2/orders/o%2F1" && rec.path != "/v2/orders/o/1" {
		t.Errorf("path = %q, order id not escaped into the URL", rec.path)
	}
}

func TestChartsQueryAndRows(t *testing.T) {
	var rec recordedRequest
	client := newTestClient(t, http.StatusOK, `[[1700000000000,100,110,95,105,3000]]`, &rec)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	rows, err := client.Charts(context.Background(), "RELIANCE", "D", from, to)
	if err != nil {
		t.Fatalf("Charts: %v", err)
	}
	if rec.path != "/v2/charts/RELIANCE" {
		t.Errorf("path = %q", rec.path)
	}
	if rec.query != "from=2025-01-01&interval=D&to=2025-01-31" {
		t.Errorf("query = %q", rec.query)
	}
	if len(rows) != 1 || rows[0][4] != 105 {
		t.Errorf("rows = %v", rows)
	}
}

func TestCheckStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusInternalServerError, domain.ErrPlatformDown},
		{http.StatusBadGateway, domain.ErrPlatformDown},
	}
	for _, tc := range cases {
		client := newTestClient(t, tc.status, `{"errorType":"x","errorMessage":"nope"}`, nil)
		_, err := client.Orders(context.Background())
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: error = %v, want %v", tc.status, err, tc.want)
		}
	}
}

func TestCheckStatusUnmappedCode(t *testing.T) {
	client := newTestClient(t, http.StatusBadRequest, `{"errorMessage":"bad qty"}`, nil)
	_, err := client.Orders(context.Background())
	if err == nil {
		t.Fatal("expected error for 400")
	}
	for _, sentinel := range []error{domain.ErrNotFound, domain.ErrUnauthorized, domain.ErrRateLimited, domain.ErrPlatformDown} {
		if errors.Is(err, sentinel) {
			t.Fatalf("400 mapped to sentinel %v", sentinel)
		}
	}
}
