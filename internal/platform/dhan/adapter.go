package dhan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/infinityai/tradebot/internal/domain"
)

// Adapter exposes the Dhan client through the uniform broker interface.
type Adapter struct {
	client   *Client
	clientID string
}

var _ domain.BrokerAdapter = (*Adapter)(nil)

// NewAdapter wraps a Dhan client as a broker adapter.
func NewAdapter(client *Client, clientID string) *Adapter {
	return &Adapter{client: client, clientID: clientID}
}

func (a *Adapter) Name() domain.BrokerName { return domain.BrokerDhan }

func (a *Adapter) Supports(asset domain.AssetType) bool {
	return asset == domain.AssetEquity
}

// Initialize verifies credentials with a fund-limit probe.
func (a *Adapter) Initialize(ctx context.Context) error {
	if _, err := a.client.FundLimit(ctx); err != nil {
		return fmt.Errorf("dhan: initialize: %w", err)
	}
	return nil
}

// PlaceOrder submits an order, filling in the intraday NSE defaults for any
// field the caller left blank.
func (a *Adapter) PlaceOrder(ctx context.Context, order domain.Order) (domain.OrderResult, error) {
	req := OrderRequest{
		DhanClientID:    a.clientID,
		TransactionType: strings.ToUpper(string(order.Side)),
		ExchangeSegment: order.ExchangeSegment,
		ProductType:     order.ProductType,
		OrderType:       string(order.Type),
		Validity:        order.Validity,
		SecurityID:      order.SecurityID,
		Quantity:        int64(order.Quantity),
		Price:           order.Price,
		TriggerPrice:    order.TriggerPrice,
	}
	if req.ExchangeSegment == "" {
		req.ExchangeSegment = "NSE_EQ"
	}
	if req.ProductType == "" {
		req.ProductType = "INTRADAY"
	}
	if req.Validity == "" {
		req.Validity = "DAY"
	}
	if req.OrderType == "" {
		if order.IsMarket() {
			req.OrderType = string(domain.OrderTypeMarket)
		} else {
			req.OrderType = string(domain.OrderTypeLimit)
		}
	}
	if req.SecurityID == "" {
		req.SecurityID = order.Symbol
	}

	resp, err := a.client.PlaceOrder(ctx, req)
	if err != nil {
		return domain.OrderResult{}, err
	}

	return domain.OrderResult{
		Broker:  domain.BrokerDhan,
		OrderID: resp.OrderID,
		Status:  normalizeStatus(resp.OrderStatus),
		Raw: map[string]any{
			"orderId":     resp.OrderID,
			"orderStatus": resp.OrderStatus,
		},
		Timestamp: time.Now().UTC(),
	}, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, orderID string) (domain.OrderResult, error) {
	resp, err := a.client.CancelOrder(ctx, orderID)
	if err != nil {
		return domain.OrderResult{}, err
	}

	status := normalizeStatus(resp.OrderStatus)
	if resp.OrderStatus == "" {
		status = domain.OrderStatusCancelled
	}

	return domain.OrderResult{
		Broker:  domain.BrokerDhan,
		OrderID: orderID,
		Status:  status,
		Raw: map[string]any{
			"orderId":     orderID,
			"orderStatus": resp.OrderStatus,
		},
		Timestamp: time.Now().UTC(),
	}, nil
}

func (a *Adapter) Orders(ctx context.Context) ([]domain.OrderRecord, error) {
	details, err := a.client.Orders(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]domain.OrderRecord, 0, len(details))
	for _, d := range details {
		symbol := d.TradingSymbol
		if symbol == "" {
			symbol = d.SecurityID
		}
		records = append(records, domain.OrderRecord{
			OrderID:   d.OrderID,
			Broker:    domain.BrokerDhan,
			Symbol:    symbol,
			Side:      domain.OrderSide(strings.ToLower(d.TransactionType)),
			Quantity:  float64(d.Quantity),
			Price:     d.Price,
			Status:    normalizeStatus(d.OrderStatus),
			CreatedAt: parseOrderTime(d.OrderTimestamp),
		})
	}
	return records, nil
}

// Portfolio merges intraday positions and demat holdings into a single
// position list.
func (a *Adapter) Portfolio(ctx context.Context) ([]domain.PortfolioPosition, error) {
	positions, err := a.client.Positions(ctx)
	if err != nil {
		return nil, err
	}
	holdings, err := a.client.Holdings(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.PortfolioPosition, 0, len(positions)+len(holdings))

	for _, p := range positions {
		qty := p.NetQty
		if qty == 0 {
			continue
		}
		price := p.LastTradedPrice
		if price == 0 {
			price = p.CostPrice
		}
		pnl := p.RealizedProfit + p.UnrealizedProfit
		basis := p.CostPrice * qty
		out = append(out, domain.PortfolioPosition{
			Symbol:        p.TradingSymbol,
			Quantity:      qty,
			AveragePrice:  p.CostPrice,
			CurrentPrice:  price,
			Value:         price * qty,
			PnL:           pnl,
			PnLPercentage: percentOf(pnl, basis),
		})
	}

	for _, h := range holdings {
		price := h.LastPrice
		if price == 0 {
			price = h.AvgCostPrice
		}
		qty := h.TotalQty
		pnl := (price - h.AvgCostPrice) * qty
		out = append(out, domain.PortfolioPosition{
			Symbol:        h.TradingSymbol,
			Quantity:      qty,
			AveragePrice:  h.AvgCostPrice,
			CurrentPrice:  price,
			Value:         price * qty,
			PnL:           pnl,
			PnLPercentage: percentOf(pnl, h.AvgCostPrice*qty),
		})
	}

	return out, nil
}

func (a *Adapter) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	feed, err := a.client.MarketFeed(ctx, symbol)
	if err != nil {
		return domain.Quote{}, err
	}
	return domain.Quote{
		Symbol:        symbol,
		Price:         feed.LastPrice,
		Change:        feed.NetChange,
		ChangePercent: feed.PercentChange,
		Volume:        feed.Volume,
		High:          feed.OHLC.High,
		Low:           feed.OHLC.Low,
		Timestamp:     time.Now().UTC(),
	}, nil
}

func (a *Adapter) Candles(ctx context.Context, symbol, interval string, days int) ([]domain.Candle, error) {
	if days <= 0 {
		days = 30
	}
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)

	rows, err := a.client.Charts(ctx, symbol, chartInterval(interval), from, to)
	if err != nil {
		return nil, err
	}

	candles := make([]domain.Candle, 0, len(rows))
	for _, r := range rows {
		if len(r) < 6 {
			continue
		}
		candles = append(candles, domain.Candle{
			Start:  time.UnixMilli(int64(r[0])).UTC(),
			Open:   r[1],
			High:   r[2],
			Low:    r[3],
			Close:  r[4],
			Volume: r[5],
		})
	}
	return candles, nil
}

// chartInterval maps the uniform interval names onto the Dhan chart API
// values. Unknown intervals fall back to daily bars.
func chartInterval(interval string) string {
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
		return "D"
	default:
		return "D"
	}
}

// normalizeStatus lowercases Dhan order states into the uniform set.
func normalizeStatus(s string) domain.OrderStatus {
	switch strings.ToUpper(s) {
	case "TRANSIT":
		return domain.OrderStatusTransit
	case "PENDING":
		return domain.OrderStatusPending
	case "OPEN":
		return domain.OrderStatusOpen
	case "TRADED", "EXECUTED", "COMPLETE", "COMPLETED":
		return domain.OrderStatusCompleted
	case "CANCELLED", "CANCELED":
		return domain.OrderStatusCancelled
	case "REJECTED":
		return domain.OrderStatusRejected
	default:
		return domain.OrderStatus(strings.ToLower(s))
	}
}

// parseOrderTime accepts the timestamp layouts Dhan has been seen to emit.
func parseOrderTime(s string) time.Time {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func percentOf(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}
