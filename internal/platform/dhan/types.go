package dhan

// --------------------------------------------------------------------------
// Dhan API DTOs
// --------------------------------------------------------------------------

// OrderRequest is the payload for POST /v2/orders.
type OrderRequest struct {
	DhanClientID    string  `json:"dhanClientId"`
	TransactionType string  `json:"transactionType"` // "BUY" or "SELL"
	ExchangeSegment string  `json:"exchangeSegment"` // e.g. "NSE_EQ"
	ProductType     string  `json:"productType"`     // e.g. "INTRADAY"
	OrderType       string  `json:"orderType"`       // "LIMIT" or "MARKET"
	Validity        string  `json:"validity"`        // e.g. "DAY"
	SecurityID      string  `json:"securityId"`
	Quantity        int64   `json:"quantity"`
	Price           float64 `json:"price"`
	TriggerPrice    float64 `json:"triggerPrice"`
}

// OrderResponse is returned by order placement and cancellation.
type OrderResponse struct {
	OrderID     string `json:"orderId"`
	OrderStatus string `json:"orderStatus"`
}

// OrderDetail is a single entry of GET /v2/orders.
type OrderDetail struct {
	OrderID         string  `json:"orderId"`
	SecurityID      string  `json:"securityId"`
	TradingSymbol   string  `json:"tradingSymbol"`
	TransactionType string  `json:"transactionType"`
	Quantity        float64 `json:"quantity"`
	Price           float64 `json:"price"`
	OrderStatus     string  `json:"orderStatus"`
	OrderTimestamp  string  `json:"orderTimestamp"` // ISO 8601
}

// PositionDetail is a single entry of GET /v2/positions.
type PositionDetail struct {
	TradingSymbol    string  `json:"tradingSymbol"`
	SecurityID       string  `json:"securityId"`
	NetQty           float64 `json:"netQty"`
	CostPrice        float64 `json:"costPrice"`
	LastTradedPrice  float64 `json:"lastTradedPrice"`
	RealizedProfit   float64 `json:"realizedProfit"`
	UnrealizedProfit float64 `json:"unrealizedProfit"`
}

// Holding is a single entry of GET /v2/holdings.
type Holding struct {
	TradingSymbol string  `json:"tradingSymbol"`
	SecurityID    string  `json:"securityId"`
	TotalQty      float64 `json:"totalQty"`
	AvgCostPrice  float64 `json:"avgCostPrice"`
	LastPrice     float64 `json:"lastPrice"`
}

// MarketFeed is the quote payload of GET /v2/marketfeed/{symbol}.
type MarketFeed struct {
	LastPrice     float64 `json:"lastPrice"`
	NetChange     float64 `json:"netChange"`
	PercentChange float64 `json:"percentChange"`
	Volume        float64 `json:"volume"`
	OHLC          struct {
		Open  float64 `json:"open"`
		High  float64 `json:"high"`
		Low   float64 `json:"low"`
		Close float64 `json:"close"`
	} `json:"ohlc"`
}

// FundLimit is the response of GET /v2/fundlimit, used as the auth probe.
type FundLimit struct {
	DhanClientID     string  `json:"dhanClientId"`
	AvailableBalance float64 `json:"availabelBalance"` // sic, per the API
	UtilizedAmount   float64 `json:"utilizedAmount"`
}

// ErrorResponse is the Dhan API error envelope.
type ErrorResponse struct {
	ErrorType    string `json:"errorType"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}
