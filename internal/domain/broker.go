package domain

import (
	"context"
	"time"
)

// BrokerName identifies one of the supported brokers.
type BrokerName string

const (
	BrokerDhan       BrokerName = "dhan"
	BrokerCoinSwitch BrokerName = "coinswitch"
)

// KnownBroker reports whether name is one of the supported broker tags.
func KnownBroker(name BrokerName) bool {
	switch name {
	case BrokerDhan, BrokerCoinSwitch:
		return true
	default:
		return false
	}
}

// AssetType classifies the instruments a broker trades.
type AssetType string

const (
	AssetEquity AssetType = "equity"
	AssetCrypto AssetType = "crypto"
)

// Quote is the latest market snapshot for a symbol.
type Quote struct {
	Symbol        string
	Price         float64
	Change        float64
	ChangePercent float64
	Volume        float64
	High          float64
	Low           float64
	Timestamp     time.Time
}

// Candle is a single OHLCV bar.
type Candle struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Start  time.Time
}

// OrderRecord is an order as reported back by a broker.
type OrderRecord struct {
	OrderID   string
	Broker    BrokerName
	Symbol    string
	Side      OrderSide
	Quantity  float64
	Price     float64
	Status    OrderStatus
	CreatedAt time.Time
}

// Cancelable reports whether the record is in a state the broker will still
// cancel.
func (r OrderRecord) Cancelable() bool {
	switch r.Status {
	case OrderStatusPending, OrderStatusOpen, OrderStatusTransit:
		return true
	default:
		return false
	}
}

// BrokerAdapter translates the uniform order and portfolio operations into
// one broker's API. Each adapter is a leaf: it performs a single attempt per
// call with no retry, and returns its platform errors wrapped with the broker
// name only.
type BrokerAdapter interface {
	Name() BrokerName
	Supports(asset AssetType) bool

	// Initialize probes connectivity and credentials. It must be called once
	// before trading but adapters do not enforce ordering themselves.
	Initialize(ctx context.Context) error

	PlaceOrder(ctx context.Context, order Order) (OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) (OrderResult, error)
	Orders(ctx context.Context) ([]OrderRecord, error)
	Portfolio(ctx context.Context) ([]PortfolioPosition, error)
	Quote(ctx context.Context, symbol string) (Quote, error)

	// Candles returns OHLCV history covering the trailing number of days at
	// the given interval ("1m", "5m", "15m", "1h", "1d").
	Candles(ctx context.Context, symbol, interval string, days int) ([]Candle, error)
}
