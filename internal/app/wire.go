package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/infinityai/tradebot/internal/blob/s3"
	"github.com/infinityai/tradebot/internal/broker"
	"github.com/infinityai/tradebot/internal/cache/redis"
	"github.com/infinityai/tradebot/internal/config"
	"github.com/infinityai/tradebot/internal/crypto"
	"github.com/infinityai/tradebot/internal/domain"
	"github.com/infinityai/tradebot/internal/notify"
	"github.com/infinityai/tradebot/internal/platform/coinswitch"
	"github.com/infinityai/tradebot/internal/platform/dhan"
	"github.com/infinityai/tradebot/internal/service"
	"github.com/infinityai/tradebot/internal/signal"
	"github.com/infinityai/tradebot/internal/store/postgres"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
// Optional infrastructure (Redis, Postgres, S3) leaves its fields nil when
// not configured; the services degrade to pure in-memory operation.
type Dependencies struct {
	Registry   *broker.Registry
	Risk       *service.RiskService
	Orders     *service.OrderService
	Portfolios *service.PortfolioService
	Tracker    *service.TrackerService
	Generator  *signal.Generator
	Runner     *signal.Runner

	// Caches (nil without Redis)
	QuoteCache  domain.QuoteCache
	CandleCache domain.CandleCache
	SignalCache domain.SignalCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	EventBus    domain.EventBus

	// Stores (nil without Postgres)
	ClosedPositions domain.ClosedPositionStore
	OrderLog        domain.OrderLogStore
	Audit           domain.AuditStore

	// Blob storage (nil without S3)
	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	Notifier *notify.Notifier
}

// needsPostgres returns true for modes that persist trading history.
func needsPostgres(mode string) bool {
	switch mode {
	case "archive", "full":
		return true
	default:
		return false
	}
}

// needsS3 returns true for modes that archive to object storage.
func needsS3(cfg *config.Config) bool {
	switch cfg.Mode {
	case "archive":
		return true
	case "full":
		return cfg.Archive.Enabled
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that must
// be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if err := config.ApplySecrets(cfg); err != nil {
		return nil, nil, fmt.Errorf("wire: secrets: %w", err)
	}

	deps := &Dependencies{}

	// --- Broker adapters ---
	deps.Registry = broker.NewRegistry()
	if cfg.HasDhan() {
		client := dhan.NewClient(cfg.Dhan.BaseURL, cfg.Dhan.ClientID, cfg.Dhan.AccessToken)
		deps.Registry.Register(dhan.NewAdapter(client, cfg.Dhan.ClientID))
	}
	if cfg.HasCoinSwitch() {
		auth := crypto.HMACAuth{Key: cfg.CoinSwitch.ApiKey, Secret: cfg.CoinSwitch.ApiSecret}
		deps.Registry.Register(coinswitch.NewAdapter(coinswitch.NewClient(cfg.CoinSwitch.BaseURL, auth)))
	}
	for _, adapter := range deps.Registry.All() {
		if err := adapter.Initialize(ctx); err != nil {
			// A broker that fails its auth probe stays registered; individual
			// calls against it surface the real error.
			logger.WarnContext(ctx, "broker initialize failed",
				slog.String("broker", string(adapter.Name())),
				slog.String("error", err.Error()),
			)
		}
	}

	// --- Redis (optional: empty addr disables it) ---
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.QuoteCache = redis.NewQuoteCache(redisClient)
		deps.CandleCache = redis.NewCandleCache(redisClient)
		deps.SignalCache = redis.NewSignalCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.EventBus = redis.NewEventBus(redisClient)
	}

	// --- PostgreSQL (only for modes that persist history) ---
	var (
		closedStore *postgres.ClosedPositionStore
		orderStore  *postgres.OrderLogStore
		auditStore  *postgres.AuditStore
	)
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		closedStore = postgres.NewClosedPositionStore(pool)
		orderStore = postgres.NewOrderLogStore(pool)
		auditStore = postgres.NewAuditStore(pool)
		deps.ClosedPositions = closedStore
		deps.OrderLog = orderStore
		deps.Audit = auditStore
	}

	// --- S3 blob storage (only for archival modes) ---
	if needsS3(cfg) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		writer := s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)

		// Archival requires the Postgres stores as its source.
		if closedStore != nil && orderStore != nil && auditStore != nil {
			deps.Archiver = s3blob.NewArchiver(writer, closedStore, orderStore, auditStore, auditStore)
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Services ---
	marketTZ, err := time.LoadLocation(cfg.Risk.MarketTimeZone)
	if err != nil {
		logger.WarnContext(ctx, "invalid market time zone, using process-local",
			slog.String("zone", cfg.Risk.MarketTimeZone),
			slog.String("error", err.Error()),
		)
		marketTZ = nil
	}

	deps.Risk = service.NewRiskService(cfg.Risk.Limits(), marketTZ, logger)
	if deps.EventBus != nil {
		deps.Risk.WithEventBus(deps.EventBus)
	}
	if deps.Audit != nil {
		deps.Risk.WithAuditStore(deps.Audit)
	}

	deps.Orders = service.NewOrderService(deps.Registry, deps.Risk, logger)
	if deps.RateLimiter != nil {
		deps.Orders.WithRateLimiter(deps.RateLimiter)
	}
	if deps.LockManager != nil {
		deps.Orders.WithLockManager(deps.LockManager)
	}
	if deps.EventBus != nil {
		deps.Orders.WithEventBus(deps.EventBus)
	}
	if deps.CandleCache != nil {
		deps.Orders.WithCandleCache(deps.CandleCache)
	}
	deps.Orders.WithStores(deps.OrderLog, deps.Audit)
	deps.Orders.WithNotifier(deps.Notifier)

	deps.Portfolios = service.NewPortfolioService(deps.Registry, logger)
	if deps.QuoteCache != nil {
		deps.Portfolios.WithQuoteCache(deps.QuoteCache)
	}

	trackerSymbol := ""
	if len(cfg.Trading.Symbols) > 0 {
		trackerSymbol = cfg.Trading.Symbols[0]
	}
	deps.Tracker = service.NewTrackerService(service.TrackerConfig{
		Broker:              domain.BrokerName(cfg.Trading.DefaultBroker),
		Symbol:              trackerSymbol,
		Capital:             cfg.Trading.Capital,
		MaxRiskPerTrade:     cfg.Trading.MaxRiskPerTrade,
		TargetProfit:        cfg.Trading.TargetProfit,
		ConfidenceThreshold: cfg.Trading.ConfidenceThreshold,
		StrikeDistancePct:   cfg.Tracker.StrikeDistancePct,
		ExpiryDays:          cfg.Tracker.ExpiryDays,
		FallbackPrice:       cfg.Tracker.FallbackPrice,
		MonitorInterval:     cfg.Tracker.MonitorInterval.Duration,
		PaperMode:           cfg.Trading.PaperTrading,
	}, deps.Registry, deps.Risk, logger)
	deps.Tracker.WithStores(deps.ClosedPositions, deps.Audit)
	if deps.EventBus != nil {
		deps.Tracker.WithEventBus(deps.EventBus)
	}
	deps.Tracker.WithNotifier(deps.Notifier)

	deps.Generator = signal.NewGenerator()
	deps.Runner = signal.NewRunner(signal.RunnerConfig{
		Symbol:        trackerSymbol,
		Broker:        domain.BrokerName(cfg.Trading.DefaultBroker),
		Interval:      cfg.Trading.SignalInterval.Duration,
		AutoExecute:   cfg.Trading.AutoExecute,
		FallbackPrice: cfg.Tracker.FallbackPrice,
	}, deps.Generator, deps.Tracker, deps.Orders, logger)
	deps.Runner.WithCaches(deps.QuoteCache, deps.SignalCache)
	if deps.EventBus != nil {
		deps.Runner.WithEventBus(deps.EventBus)
	}

	return deps, cleanup, nil
}
