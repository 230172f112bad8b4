package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/infinityai/tradebot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// signalLogKey is the Redis list holding the most recent signals, newest
// first.
const signalLogKey = "signals:recent"

// signalLogMax bounds the list length via LTRIM after every push.
const signalLogMax = 100

// SignalCache implements domain.SignalCache using a capped Redis list of
// JSON-encoded signals.
type SignalCache struct {
	rdb *redis.Client
}

// NewSignalCache creates a SignalCache backed by the given Client.
func NewSignalCache(c *Client) *SignalCache {
	return &SignalCache{rdb: c.Underlying()}
}

// PushSignal prepends a signal to the recent-signals list and trims the list
// to its maximum length.
func (sc *SignalCache) PushSignal(ctx context.Context, sig domain.TradeSignal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("redis: marshal signal: %w", err)
	}

	pipe := sc.rdb.TxPipeline()
	pipe.LPush(ctx, signalLogKey, payload)
	pipe.LTrim(ctx, signalLogKey, 0, signalLogMax-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: push signal: %w", err)
	}
	return nil
}

// RecentSignals returns up to limit signals, newest first. Entries that fail
// to decode are skipped.
func (sc *SignalCache) RecentSignals(ctx context.Context, limit int) ([]domain.TradeSignal, error) {
	if limit <= 0 || limit > signalLogMax {
		limit = signalLogMax
	}

	raw, err := sc.rdb.LRange(ctx, signalLogKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: recent signals: %w", err)
	}

	signals := make([]domain.TradeSignal, 0, len(raw))
	for _, item := range raw {
		var sig domain.TradeSignal
		if err := json.Unmarshal([]byte(item), &sig); err != nil {
			continue
		}
		signals = append(signals, sig)
	}
	return signals, nil
}

// Compile-time interface check.
var _ domain.SignalCache = (*SignalCache)(nil)
