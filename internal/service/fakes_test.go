package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/infinityai/tradebot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAdapter is a scriptable BrokerAdapter for service tests.
type fakeAdapter struct {
	mu sync.Mutex

	name domain.BrokerName

	quote    domain.Quote
	quoteErr error

	orders    []domain.OrderRecord
	ordersErr error

	positions    []domain.PortfolioPosition
	portfolioErr error

	placeErr  error
	cancelErr error

	placed     []domain.Order
	cancelled  []string
	quoteCalls int
}

func (a *fakeAdapter) Name() domain.BrokerName              { return a.name }
func (a *fakeAdapter) Supports(asset domain.AssetType) bool { return true }
func (a *fakeAdapter) Initialize(ctx context.Context) error { return nil }

func (a *fakeAdapter) PlaceOrder(ctx context.Context, order domain.Order) (domain.OrderResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.placeErr != nil {
		return domain.OrderResult{}, a.placeErr
	}
	a.placed = append(a.placed, order)
	return domain.OrderResult{
		Broker:    a.name,
		OrderID:   "ord-1",
		Status:    domain.OrderStatusPending,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (a *fakeAdapter) CancelOrder(ctx context.Context, orderID string) (domain.OrderResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancelErr != nil {
		return domain.OrderResult{}, a.cancelErr
	}
	a.cancelled = append(a.cancelled, orderID)
	return domain.OrderResult{
		Broker:  a.name,
		OrderID: orderID,
		Status:  domain.OrderStatusCancelled,
	}, nil
}

func (a *fakeAdapter) Orders(ctx context.Context) ([]domain.OrderRecord, error) {
	if a.ordersErr != nil {
		return nil, a.ordersErr
	}
	return a.orders, nil
}

func (a *fakeAdapter) Portfolio(ctx context.Context) ([]domain.PortfolioPosition, error) {
	if a.portfolioErr != nil {
		return nil, a.portfolioErr
	}
	return a.positions, nil
}

func (a *fakeAdapter) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	a.mu.Lock()
	a.quoteCalls++
	a.mu.Unlock()
	if a.quoteErr != nil {
		return domain.Quote{}, a.quoteErr
	}
	return a.quote, nil
}

func (a *fakeAdapter) Candles(ctx context.Context, symbol, interval string, days int) ([]domain.Candle, error) {
	return nil, nil
}

func (a *fakeAdapter) quoteCallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.quoteCalls
}

var _ domain.BrokerAdapter = (*fakeAdapter)(nil)

// fakeRateLimiter answers Allow with a fixed verdict.
type fakeRateLimiter struct {
	allowed bool
	err     error
	calls   int
}

func (f *fakeRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	f.calls++
	return f.allowed, f.err
}

func (f *fakeRateLimiter) Wait(ctx context.Context, key string) error { return nil }

// memAuditStore collects audit events in memory.
type memAuditStore struct {
	mu     sync.Mutex
	events []string
}

func (m *memAuditStore) Log(ctx context.Context, event string, detail map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *memAuditStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

// memClosedStore collects appended positions in memory.
type memClosedStore struct {
	mu        sync.Mutex
	positions []domain.SpreadPosition
}

func (m *memClosedStore) Append(ctx context.Context, pos domain.SpreadPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = append(m.positions, pos)
	return nil
}

func (m *memClosedStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.SpreadPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SpreadPosition(nil), m.positions...), nil
}

func (m *memClosedStore) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.positions)), nil
}
