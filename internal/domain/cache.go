package domain

import (
	"context"
	"time"
)

// QuoteCache provides fast access to the latest broker quotes.
type QuoteCache interface {
	SetQuote(ctx context.Context, broker BrokerName, symbol string, price float64, ts time.Time) error
	GetQuote(ctx context.Context, broker BrokerName, symbol string) (float64, time.Time, error)
}

// CandleCache stores recent OHLCV history so dashboard reads do not hammer
// the broker APIs.
type CandleCache interface {
	SetCandles(ctx context.Context, broker BrokerName, symbol, interval string, candles []Candle, ttl time.Duration) error
	GetCandles(ctx context.Context, broker BrokerName, symbol, interval string) ([]Candle, error)
}

// SignalCache keeps a bounded log of the most recent trade signals.
type SignalCache interface {
	PushSignal(ctx context.Context, sig TradeSignal) error
	RecentSignals(ctx context.Context, limit int) ([]TradeSignal, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// EventBus provides pub/sub fan-out plus a durable stream of the same
// events.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
