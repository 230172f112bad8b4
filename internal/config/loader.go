package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TRADEBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known TRADEBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Dhan ──
	setStr(&cfg.Dhan.ClientID, "TRADEBOT_DHAN_CLIENT_ID")
	setStr(&cfg.Dhan.AccessToken, "TRADEBOT_DHAN_ACCESS_TOKEN")
	setStr(&cfg.Dhan.BaseURL, "TRADEBOT_DHAN_BASE_URL")

	// ── CoinSwitch ──
	setStr(&cfg.CoinSwitch.ApiKey, "TRADEBOT_COINSWITCH_API_KEY")
	setStr(&cfg.CoinSwitch.ApiSecret, "TRADEBOT_COINSWITCH_API_SECRET")
	setStr(&cfg.CoinSwitch.BaseURL, "TRADEBOT_COINSWITCH_BASE_URL")

	// ── Secrets ──
	setStr(&cfg.Secrets.Path, "TRADEBOT_SECRETS_PATH")
	setStr(&cfg.Secrets.Password, "TRADEBOT_SECRETS_PASSWORD")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "TRADEBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "TRADEBOT_DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "TRADEBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "TRADEBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "TRADEBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "TRADEBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "TRADEBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "TRADEBOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "TRADEBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "TRADEBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "TRADEBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "TRADEBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TRADEBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TRADEBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "TRADEBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "TRADEBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "TRADEBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "TRADEBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TRADEBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "TRADEBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TRADEBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TRADEBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "TRADEBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "TRADEBOT_S3_FORCE_PATH_STYLE")

	// ── Risk ──
	setFloat64(&cfg.Risk.MaxOrderValue, "TRADEBOT_RISK_MAX_ORDER_VALUE")
	setFloat64(&cfg.Risk.MaxDailyLoss, "TRADEBOT_RISK_MAX_DAILY_LOSS")
	setFloat64(&cfg.Risk.MaxPositionSize, "TRADEBOT_RISK_MAX_POSITION_SIZE")
	setInt(&cfg.Risk.MaxOpenPositions, "TRADEBOT_RISK_MAX_OPEN_POSITIONS")
	setStringSlice(&cfg.Risk.AllowedSymbols, "TRADEBOT_RISK_ALLOWED_SYMBOLS")
	setBool(&cfg.Risk.MarketHoursOnly, "TRADEBOT_RISK_MARKET_HOURS_ONLY")
	setInt(&cfg.Risk.MaxOrdersPerMinute, "TRADEBOT_RISK_MAX_ORDERS_PER_MINUTE")
	setStr(&cfg.Risk.MarketTimeZone, "TRADEBOT_RISK_MARKET_TIME_ZONE")

	// ── Trading ──
	setFloat64(&cfg.Trading.Capital, "TRADEBOT_TRADING_CAPITAL")
	setFloat64(&cfg.Trading.MaxRiskPerTrade, "TRADEBOT_TRADING_MAX_RISK_PER_TRADE")
	setFloat64(&cfg.Trading.TargetProfit, "TRADEBOT_TRADING_TARGET_PROFIT")
	setFloat64(&cfg.Trading.ConfidenceThreshold, "TRADEBOT_TRADING_CONFIDENCE_THRESHOLD")
	setBool(&cfg.Trading.AutoExecute, "TRADEBOT_TRADING_AUTO_EXECUTE")
	setDuration(&cfg.Trading.SignalInterval, "TRADEBOT_TRADING_SIGNAL_INTERVAL")
	setStringSlice(&cfg.Trading.Symbols, "TRADEBOT_TRADING_SYMBOLS")
	setStr(&cfg.Trading.DefaultBroker, "TRADEBOT_TRADING_DEFAULT_BROKER")
	setBool(&cfg.Trading.PaperTrading, "TRADEBOT_TRADING_PAPER_TRADING")

	// ── Tracker ──
	setDuration(&cfg.Tracker.MonitorInterval, "TRADEBOT_TRACKER_MONITOR_INTERVAL")
	setFloat64(&cfg.Tracker.StrikeDistancePct, "TRADEBOT_TRACKER_STRIKE_DISTANCE_PCT")
	setInt(&cfg.Tracker.ExpiryDays, "TRADEBOT_TRACKER_EXPIRY_DAYS")
	setFloat64(&cfg.Tracker.FallbackPrice, "TRADEBOT_TRACKER_FALLBACK_PRICE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "TRADEBOT_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "TRADEBOT_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "TRADEBOT_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "TRADEBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "TRADEBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "TRADEBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.ApiKey, "TRADEBOT_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "TRADEBOT_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateLimitWindow, "TRADEBOT_SERVER_RATE_LIMIT_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "TRADEBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TRADEBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "TRADEBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "TRADEBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "TRADEBOT_MODE")
	setStr(&cfg.LogLevel, "TRADEBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
