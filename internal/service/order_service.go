package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/infinityai/tradebot/internal/broker"
	"github.com/infinityai/tradebot/internal/domain"
	"github.com/infinityai/tradebot/internal/notify"
)

// OrderService routes validated orders to the matching broker adapter. It
// performs a single attempt per outbound call: validation failures are local
// rejections and adapter failures propagate unchanged, with no retry in
// either case.
type OrderService struct {
	registry *broker.Registry
	risk     *RiskService

	limiter  domain.RateLimiter   // optional
	locks    domain.LockManager   // optional
	bus      domain.EventBus      // optional
	orderLog domain.OrderLogStore // optional
	audit    domain.AuditStore    // optional
	candles  domain.CandleCache   // optional
	notifier *notify.Notifier     // optional
	logger   *slog.Logger
}

// NewOrderService creates an OrderService over the given adapter registry and
// risk gate.
func NewOrderService(registry *broker.Registry, risk *RiskService, logger *slog.Logger) *OrderService {
	return &OrderService{
		registry: registry,
		risk:     risk,
		logger:   logger.With(slog.String("component", "order_service")),
	}
}

// WithRateLimiter attaches a distributed rate limiter enforcing the
// MaxOrdersPerMinute risk limit per broker. Optional.
func (s *OrderService) WithRateLimiter(limiter domain.RateLimiter) *OrderService {
	s.limiter = limiter
	return s
}

// WithLockManager attaches a lock manager so overlapping emergency stops do
// not double-cancel. Optional.
func (s *OrderService) WithLockManager(locks domain.LockManager) *OrderService {
	s.locks = locks
	return s
}

// WithEventBus attaches an event bus for order lifecycle events. Optional.
func (s *OrderService) WithEventBus(bus domain.EventBus) *OrderService {
	s.bus = bus
	return s
}

// WithStores attaches the order log and audit stores. Both are best-effort:
// a store failure is logged and never fails the trading path. Optional.
func (s *OrderService) WithStores(orderLog domain.OrderLogStore, audit domain.AuditStore) *OrderService {
	s.orderLog = orderLog
	s.audit = audit
	return s
}

// WithCandleCache attaches a cache for OHLCV history so repeated chart
// requests do not hit the broker APIs. Optional.
func (s *OrderService) WithCandleCache(candles domain.CandleCache) *OrderService {
	s.candles = candles
	return s
}

// WithNotifier attaches the notification fan-out. Optional.
func (s *OrderService) WithNotifier(n *notify.Notifier) *OrderService {
	s.notifier = n
	return s
}

// PlaceOrder validates the order, applies the per-broker rate limit, and
// dispatches to the matching adapter. Adapter errors come back as-is; the
// adapters already carry their broker name in the error chain.
func (s *OrderService) PlaceOrder(ctx context.Context, order domain.Order) (domain.OrderResult, error) {
	if err := s.risk.ValidateOrder(order); err != nil {
		s.logger.WarnContext(ctx, "order rejected",
			slog.String("broker", string(order.Broker)),
			slog.String("symbol", order.Symbol),
			slog.String("reason", err.Error()),
		)
		return domain.OrderResult{}, err
	}

	if s.limiter != nil {
		if limit := s.risk.Limits().MaxOrdersPerMinute; limit > 0 {
			allowed, err := s.limiter.Allow(ctx, "orders:"+string(order.Broker), limit, time.Minute)
			if err != nil {
				// Fail open: a limiter outage must not block trading.
				s.logger.WarnContext(ctx, "rate limiter unavailable", slog.String("error", err.Error()))
			} else if !allowed {
				return domain.OrderResult{}, fmt.Errorf("%w: order rate limit %d/min reached for %s",
					domain.ErrRateLimited, limit, order.Broker)
			}
		}
	}

	adapter, err := s.registry.Get(order.Broker)
	if err != nil {
		return domain.OrderResult{}, err
	}

	result, err := adapter.PlaceOrder(ctx, order)
	if err != nil {
		s.logger.ErrorContext(ctx, "adapter place order failed",
			slog.String("broker", string(order.Broker)),
			slog.String("symbol", order.Symbol),
			slog.String("error", err.Error()),
		)
		if s.notifier != nil {
			_ = s.notifier.Notify(ctx, notify.EventError, "Order failed",
				fmt.Sprintf("%s %s %s x%.4f: %v", order.Broker, order.Side, order.Symbol, order.Quantity, err))
		}
		return domain.OrderResult{}, err
	}

	s.recordPlaced(ctx, order, result)

	s.logger.InfoContext(ctx, "order placed",
		slog.String("broker", string(order.Broker)),
		slog.String("symbol", order.Symbol),
		slog.String("side", string(order.Side)),
		slog.Float64("quantity", order.Quantity),
		slog.String("order_id", result.OrderID),
	)
	return result, nil
}

// recordPlaced writes the best-effort side effects of a successful placement:
// order log row, audit entry, bus event, notification.
func (s *OrderService) recordPlaced(ctx context.Context, order domain.Order, result domain.OrderResult) {
	if s.orderLog != nil {
		rec := domain.OrderRecord{
			OrderID:   result.OrderID,
			Broker:    order.Broker,
			Symbol:    order.Symbol,
			Side:      order.Side,
			Quantity:  order.Quantity,
			Price:     order.Price,
			Status:    result.Status,
			CreatedAt: result.Timestamp,
		}
		if err := s.orderLog.Insert(ctx, rec); err != nil {
			s.logger.WarnContext(ctx, "order log insert failed",
				slog.String("order_id", result.OrderID),
				slog.String("error", err.Error()),
			)
		}
	}
	if s.audit != nil {
		if err := s.audit.Log(ctx, "order_placed", map[string]any{
			"order_id": result.OrderID,
			"broker":   string(order.Broker),
			"symbol":   order.Symbol,
			"side":     string(order.Side),
			"quantity": order.Quantity,
			"price":    order.Price,
		}); err != nil {
			s.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
		}
	}
	if s.bus != nil {
		evt, _ := json.Marshal(map[string]any{
			"event":    "order_placed",
			"order_id": result.OrderID,
			"broker":   string(order.Broker),
			"symbol":   order.Symbol,
			"side":     string(order.Side),
			"status":   string(result.Status),
		})
		if err := s.bus.Publish(ctx, "orders", evt); err != nil {
			s.logger.WarnContext(ctx, "publish failed", slog.String("error", err.Error()))
		}
	}
	if s.notifier != nil {
		_ = s.notifier.Notify(ctx, notify.EventOrderPlaced, "Order placed",
			fmt.Sprintf("%s %s %s x%.4f", order.Broker, order.Side, order.Symbol, order.Quantity))
	}
}

// CancelOrder passes the cancellation straight through to the matching
// adapter.
func (s *OrderService) CancelOrder(ctx context.Context, name domain.BrokerName, orderID string) (domain.OrderResult, error) {
	adapter, err := s.registry.Get(name)
	if err != nil {
		return domain.OrderResult{}, err
	}

	result, err := adapter.CancelOrder(ctx, orderID)
	if err != nil {
		return domain.OrderResult{}, err
	}

	if s.audit != nil {
		if auditErr := s.audit.Log(ctx, "order_cancelled", map[string]any{
			"order_id": orderID,
			"broker":   string(name),
		}); auditErr != nil {
			s.logger.WarnContext(ctx, "audit log failed", slog.String("error", auditErr.Error()))
		}
	}
	if s.bus != nil {
		evt, _ := json.Marshal(map[string]any{
			"event":    "order_cancelled",
			"order_id": orderID,
			"broker":   string(name),
		})
		if pubErr := s.bus.Publish(ctx, "orders", evt); pubErr != nil {
			s.logger.WarnContext(ctx, "publish failed", slog.String("error", pubErr.Error()))
		}
	}
	if s.notifier != nil {
		_ = s.notifier.Notify(ctx, notify.EventOrderCancelled, "Order cancelled",
			fmt.Sprintf("%s order %s cancelled", name, orderID))
	}

	s.logger.InfoContext(ctx, "order cancelled",
		slog.String("broker", string(name)),
		slog.String("order_id", orderID),
	)
	return result, nil
}

// ListOrders returns the broker's view of its orders.
func (s *OrderService) ListOrders(ctx context.Context, name domain.BrokerName) ([]domain.OrderRecord, error) {
	adapter, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return adapter.Orders(ctx)
}

// Quote fetches the latest quote for a symbol from the given broker.
func (s *OrderService) Quote(ctx context.Context, name domain.BrokerName, symbol string) (domain.Quote, error) {
	adapter, err := s.registry.Get(name)
	if err != nil {
		return domain.Quote{}, err
	}
	return adapter.Quote(ctx, symbol)
}

// Candles returns OHLCV history for a symbol, serving from the cache when a
// fresh entry exists. Cache failures degrade to a direct broker fetch.
func (s *OrderService) Candles(ctx context.Context, name domain.BrokerName, symbol, interval string, days int) ([]domain.Candle, error) {
	adapter, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}

	if s.candles != nil {
		if cached, cacheErr := s.candles.GetCandles(ctx, name, symbol, interval); cacheErr == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	candles, err := adapter.Candles(ctx, symbol, interval, days)
	if err != nil {
		return nil, err
	}
	if s.candles != nil {
		if cacheErr := s.candles.SetCandles(ctx, name, symbol, interval, candles, 5*time.Minute); cacheErr != nil {
			s.logger.WarnContext(ctx, "candle cache write failed",
				slog.String("symbol", symbol),
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	return candles, nil
}

// EmergencyStop lists open orders on every configured broker and cancels each
// one still in a cancelable state. Failures are captured in the report rather
// than raised: one entry per cancel attempt, or one per broker whose order
// listing itself failed. It never returns an error.
func (s *OrderService) EmergencyStop(ctx context.Context) []domain.CancellationReport {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, "emergency_stop", 30*time.Second)
		if err != nil {
			s.logger.WarnContext(ctx, "emergency stop lock not acquired, proceeding",
				slog.String("error", err.Error()),
			)
		} else {
			defer unlock()
		}
	}

	s.logger.WarnContext(ctx, "emergency stop initiated")

	report := make([]domain.CancellationReport, 0)
	for _, adapter := range s.registry.All() {
		name := adapter.Name()

		orders, err := adapter.Orders(ctx)
		if err != nil {
			report = append(report, domain.CancellationReport{
				Broker: name,
				Error:  err.Error(),
			})
			continue
		}

		for _, rec := range orders {
			if !rec.Cancelable() {
				continue
			}
			entry := domain.CancellationReport{Broker: name, OrderID: rec.OrderID}
			if result, cancelErr := adapter.CancelOrder(ctx, rec.OrderID); cancelErr != nil {
				entry.Error = cancelErr.Error()
			} else {
				entry.Status = result.Status
			}
			report = append(report, entry)
		}
	}

	if s.audit != nil {
		if err := s.audit.Log(ctx, "emergency_stop", map[string]any{
			"cancellations": len(report),
		}); err != nil {
			s.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
		}
	}
	if s.bus != nil {
		evt, _ := json.Marshal(map[string]any{
			"event":         "emergency_stop",
			"cancellations": len(report),
		})
		if err := s.bus.Publish(ctx, "orders", evt); err != nil {
			s.logger.WarnContext(ctx, "publish failed", slog.String("error", err.Error()))
		}
	}
	if s.notifier != nil {
		_ = s.notifier.Notify(ctx, notify.EventEmergencyStop, "Emergency stop",
			fmt.Sprintf("%d order cancellation attempts across %d brokers", len(report), s.registry.Len()))
	}

	return report
}
