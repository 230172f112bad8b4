package coinswitch

import "encoding/json"

// apiResponse is the envelope every CoinSwitch endpoint wraps its payload in.
type apiResponse struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
	Msg  string          `json:"msg"`
}

// OrderData is a single order as returned by the order endpoints. Numeric
// fields arrive as strings.
type OrderData struct {
	OrderID string `json:"orderId"`
	Symbol  string `json:"symbol"`
	Side    string `json:"side"`
	Status  string `json:"status"`
	OrigQty string `json:"origQty"`
	Price   string `json:"price"`
	Time    int64  `json:"time"`
}

// Balance is one asset row of the user portfolio.
type Balance struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

// Ticker is the 24hr statistics for a trading pair.
type Ticker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChange        string `json:"priceChange"`
	PriceChangePercent string `json:"priceChangePercent"`
	Volume             string `json:"volume"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
}

// Depth is an order book snapshot. Price levels are [price, quantity] string
// pairs.
type Depth struct {
	Symbol    string     `json:"symbol"`
	Bids      [][]string `json:"bids"`
	Asks      [][]string `json:"asks"`
	Timestamp int64      `json:"timestamp"`
}
