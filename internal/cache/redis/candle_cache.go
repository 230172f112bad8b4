package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/infinityai/tradebot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// CandleCache implements domain.CandleCache using per-series JSON blobs with
// a TTL, so repeated dashboard history reads are served without another
// broker round trip.
type CandleCache struct {
	rdb *redis.Client
}

// NewCandleCache creates a CandleCache backed by the given Client.
func NewCandleCache(c *Client) *CandleCache {
	return &CandleCache{rdb: c.Underlying()}
}

func candleKey(broker domain.BrokerName, symbol, interval string) string {
	return "candles:" + string(broker) + ":" + symbol + ":" + interval
}

// SetCandles stores a candle series under its broker/symbol/interval key.
func (cc *CandleCache) SetCandles(ctx context.Context, broker domain.BrokerName, symbol, interval string, candles []domain.Candle, ttl time.Duration) error {
	payload, err := json.Marshal(candles)
	if err != nil {
		return fmt.Errorf("redis: marshal candles %s: %w", symbol, err)
	}
	if err := cc.rdb.Set(ctx, candleKey(broker, symbol, interval), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set candles %s: %w", symbol, err)
	}
	return nil
}

// GetCandles retrieves a cached candle series. It returns domain.ErrNotFound
// when the series is absent or expired.
func (cc *CandleCache) GetCandles(ctx context.Context, broker domain.BrokerName, symbol, interval string) ([]domain.Candle, error) {
	raw, err := cc.rdb.Get(ctx, candleKey(broker, symbol, interval)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get candles %s: %w", symbol, err)
	}

	var candles []domain.Candle
	if err := json.Unmarshal(raw, &candles); err != nil {
		return nil, fmt.Errorf("redis: decode candles %s: %w", symbol, err)
	}
	return candles, nil
}

// Compile-time interface check.
var _ domain.CandleCache = (*CandleCache)(nil)
