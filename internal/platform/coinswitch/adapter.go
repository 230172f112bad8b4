package coinswitch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/infinityai/tradebot/internal/domain"
)

// Adapter exposes the CoinSwitch client through the uniform broker
// interface.
type Adapter struct {
	client *Client
}

var _ domain.BrokerAdapter = (*Adapter)(nil)

// NewAdapter wraps a CoinSwitch client as a broker adapter.
func NewAdapter(client *Client) *Adapter {
	return &Adapter{client: client}
}

func (a *Adapter) Name() domain.BrokerName { return domain.BrokerCoinSwitch }

func (a *Adapter) Supports(asset domain.AssetType) bool {
	return asset == domain.AssetCrypto
}

// Initialize checks reachability, then that the key pair is accepted.
func (a *Adapter) Initialize(ctx context.Context) error {
	if err := a.client.Ping(ctx); err != nil {
		return fmt.Errorf("coinswitch: initialize: %w", err)
	}
	if err := a.client.ValidateKeys(ctx); err != nil {
		return fmt.Errorf("coinswitch: initialize: %w", err)
	}
	return nil
}

func (a *Adapter) PlaceOrder(ctx context.Context, order domain.Order) (domain.OrderResult, error) {
	orderType := string(order.Type)
	if orderType == "" {
		if order.IsMarket() {
			orderType = string(domain.OrderTypeMarket)
		} else {
			orderType = string(domain.OrderTypeLimit)
		}
	}

	resp, err := a.client.CreateOrder(ctx, order.Symbol, string(order.Side), orderType, order.Quantity, order.Price)
	if err != nil {
		return domain.OrderResult{}, err
	}

	return domain.OrderResult{
		Broker:  domain.BrokerCoinSwitch,
		OrderID: resp.OrderID,
		Status:  normalizeStatus(resp.Status),
		Raw: map[string]any{
			"orderId": resp.OrderID,
			"status":  resp.Status,
		},
		Timestamp: time.Now().UTC(),
	}, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, orderID string) (domain.OrderResult, error) {
	resp, err := a.client.CancelOrder(ctx, orderID)
	if err != nil {
		return domain.OrderResult{}, err
	}

	status := normalizeStatus(resp.Status)
	if resp.Status == "" {
		status = domain.OrderStatusCancelled
	}

	return domain.OrderResult{
		Broker:  domain.BrokerCoinSwitch,
		OrderID: orderID,
		Status:  status,
		Raw: map[string]any{
			"orderId": orderID,
			"status":  resp.Status,
		},
		Timestamp: time.Now().UTC(),
	}, nil
}

func (a *Adapter) Orders(ctx context.Context) ([]domain.OrderRecord, error) {
	orders, err := a.client.Orders(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]domain.OrderRecord, 0, len(orders))
	for _, o := range orders {
		records = append(records, domain.OrderRecord{
			OrderID:   o.OrderID,
			Broker:    domain.BrokerCoinSwitch,
			Symbol:    o.Symbol,
			Side:      domain.OrderSide(strings.ToLower(o.Side)),
			Quantity:  parseFloat(o.OrigQty),
			Price:     parseFloat(o.Price),
			Status:    normalizeStatus(o.Status),
			CreatedAt: time.UnixMilli(o.Time).UTC(),
		})
	}
	return records, nil
}

// Portfolio lists nonzero asset balances. CoinSwitch reports no cost basis,
// so average and current prices stay zero until a quote fills them in.
func (a *Adapter) Portfolio(ctx context.Context) ([]domain.PortfolioPosition, error) {
	balances, err := a.client.Portfolio(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.PortfolioPosition, 0, len(balances))
	for _, b := range balances {
		qty := parseFloat(b.Free) + parseFloat(b.Locked)
		if qty == 0 {
			continue
		}
		out = append(out, domain.PortfolioPosition{
			Symbol:   strings.ToUpper(b.Asset) + "INR",
			Quantity: qty,
		})
	}
	return out, nil
}

func (a *Adapter) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	t, err := a.client.Ticker(ctx, symbol)
	if err != nil {
		return domain.Quote{}, err
	}
	return domain.Quote{
		Symbol:        symbol,
		Price:         parseFloat(t.LastPrice),
		Change:        parseFloat(t.PriceChange),
		ChangePercent: parseFloat(t.PriceChangePercent),
		Volume:        parseFloat(t.Volume),
		High:          parseFloat(t.HighPrice),
		Low:           parseFloat(t.LowPrice),
		Timestamp:     time.Now().UTC(),
	}, nil
}

func (a *Adapter) Candles(ctx context.Context, symbol, interval string, days int) ([]domain.Candle, error) {
	if days <= 0 {
		days = 30
	}
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	rows, err := a.client.Klines(ctx, symbol, klineInterval(interval), start, end, 0)
	if err != nil {
		return nil, err
	}

	candles := make([]domain.Candle, 0, len(rows))
	for _, r := range rows {
		candles = append(candles, domain.Candle{
			Start:  time.UnixMilli(r.Start).UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	return candles, nil
}

// klineInterval maps the uniform interval names onto the minute counts the
// klines endpoint expects. Unknown intervals fall back to daily bars.
func klineInterval(interval string) string {
	switch interval {
	case "1m":
		return "1"
	case "5m":
		return "5"
	case "15m":
		return "15"
	case "1h":
		return "60"
	case "1d", "":
		return "1440"
	default:
		return "1440"
	}
}

// normalizeStatus lowercases CoinSwitch order states into the uniform set.
func normalizeStatus(s string) domain.OrderStatus {
	switch strings.ToUpper(s) {
	case "OPEN", "PARTIALLY_EXECUTED":
		return domain.OrderStatusOpen
	case "EXECUTED":
		return domain.OrderStatusCompleted
	case "CANCELLED", "CANCELED", "EXPIRED":
		return domain.OrderStatusCancelled
	case "DISCARDED", "REJECTED":
		return domain.OrderStatusRejected
	default:
		return domain.OrderStatus(strings.ToLower(s))
	}
}
