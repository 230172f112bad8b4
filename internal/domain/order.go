package domain

import "time"

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType is the broker execution type.
type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

// OrderStatus tracks the lifecycle of an order at the broker.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusTransit   OrderStatus = "transit"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Order is a broker-bound order request. One is built per incoming request,
// validated, then handed to the matching adapter; it is never mutated after
// construction and never persisted as-is.
type Order struct {
	Broker   BrokerName
	Symbol   string
	Side     OrderSide
	Quantity float64
	Price    float64 // 0 means market order
	Type     OrderType

	// Equities-specific fields. Zero values fall back to the adapter's
	// defaults (NSE_EQ, INTRADAY, DAY).
	ExchangeSegment string
	ProductType     string
	Validity        string
	SecurityID      string
	TriggerPrice    float64
}

// Notional returns price times quantity. A market order (no price) has a
// notional of zero.
func (o Order) Notional() float64 {
	return o.Price * o.Quantity
}

// IsMarket reports whether the order carries no limit price.
func (o Order) IsMarket() bool {
	return o.Price == 0
}

// OrderResult wraps an adapter's response to a place or cancel call.
type OrderResult struct {
	Broker    BrokerName
	OrderID   string
	Status    OrderStatus
	Message   string
	Raw       map[string]any
	Timestamp time.Time
}
