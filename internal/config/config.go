// Package config defines the top-level configuration for the trading bot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/infinityai/tradebot/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by TRADEBOT_* environment variables.
type Config struct {
	Dhan       DhanConfig       `toml:"dhan"`
	CoinSwitch CoinSwitchConfig `toml:"coinswitch"`
	Secrets    SecretsConfig    `toml:"secrets"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Risk       RiskConfig       `toml:"risk"`
	Trading    TradingConfig    `toml:"trading"`
	Tracker    TrackerConfig    `toml:"tracker"`
	Archive    ArchiveConfig    `toml:"archive"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// DhanConfig holds Dhan equities API credentials.
type DhanConfig struct {
	ClientID    string `toml:"client_id"`
	AccessToken string `toml:"access_token"`
	BaseURL     string `toml:"base_url"`
}

// CoinSwitchConfig holds CoinSwitch crypto API credentials.
type CoinSwitchConfig struct {
	ApiKey    string `toml:"api_key"`
	ApiSecret string `toml:"api_secret"`
	BaseURL   string `toml:"base_url"`
}

// SecretsConfig points at an encrypted broker-secrets file. When set, keys
// found in the file override the plaintext credentials above.
type SecretsConfig struct {
	Path     string `toml:"path"`
	Password string `toml:"password"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// RiskConfig holds the initial order risk limits. They seed the mutable
// in-process limits and can be changed at runtime through the admin API.
type RiskConfig struct {
	MaxOrderValue      float64  `toml:"max_order_value"`
	MaxDailyLoss       float64  `toml:"max_daily_loss"`
	MaxPositionSize    float64  `toml:"max_position_size"`
	MaxOpenPositions   int      `toml:"max_open_positions"`
	AllowedSymbols     []string `toml:"allowed_symbols"`
	MarketHoursOnly    bool     `toml:"market_hours_only"`
	MaxOrdersPerMinute int      `toml:"max_orders_per_minute"`
	// MarketTimeZone is the exchange-local zone the market-hours window is
	// evaluated in.
	MarketTimeZone string `toml:"market_time_zone"`
}

// Limits converts the config section into the runtime risk limits value.
func (r RiskConfig) Limits() domain.RiskLimits {
	symbols := make([]string, len(r.AllowedSymbols))
	copy(symbols, r.AllowedSymbols)
	return domain.RiskLimits{
		MaxOrderValue:      r.MaxOrderValue,
		MaxDailyLoss:       r.MaxDailyLoss,
		MaxPositionSize:    r.MaxPositionSize,
		MaxOpenPositions:   r.MaxOpenPositions,
		AllowedSymbols:     symbols,
		MarketHoursOnly:    r.MarketHoursOnly,
		MaxOrdersPerMinute: r.MaxOrdersPerMinute,
	}
}

// TradingConfig holds the spread-trading parameters.
type TradingConfig struct {
	Capital             float64  `toml:"capital"`
	MaxRiskPerTrade     float64  `toml:"max_risk_per_trade"`
	TargetProfit        float64  `toml:"target_profit"`
	ConfidenceThreshold float64  `toml:"confidence_threshold"`
	AutoExecute         bool     `toml:"auto_execute"`
	SignalInterval      duration `toml:"signal_interval"`
	Symbols             []string `toml:"symbols"`
	DefaultBroker       string   `toml:"default_broker"`
	// PaperTrading simulates the tracker's opening orders instead of routing
	// them to the broker.
	PaperTrading bool `toml:"paper_trading"`
}

// TrackerConfig holds the position monitoring parameters.
type TrackerConfig struct {
	MonitorInterval   duration `toml:"monitor_interval"`
	StrikeDistancePct float64  `toml:"strike_distance_pct"`
	ExpiryDays        int      `toml:"expiry_days"`
	// FallbackPrice is used when a monitoring pass cannot fetch a live quote.
	FallbackPrice float64 `toml:"fallback_price"`
}

// ArchiveConfig holds cold-storage archival parameters.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	ApiKey      string   `toml:"api_key"`

	// RateLimit caps API requests per client per window. Zero disables it.
	RateLimit       int      `toml:"rate_limit"`
	RateLimitWindow duration `toml:"rate_limit_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Dhan: DhanConfig{
			BaseURL: "https://api.dhan.co",
		},
		CoinSwitch: CoinSwitchConfig{
			BaseURL: "https://api-trading.coinswitch.co",
		},
		Postgres: PostgresConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "ap-south-1",
			Bucket:         "tradebot-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Risk: RiskConfig{
			MaxOrderValue:      50_000,
			MaxDailyLoss:       5_000,
			MaxPositionSize:    10_000,
			MaxOpenPositions:   5,
			AllowedSymbols:     []string{"RELIANCE", "TCS", "INFY", "HDFCBANK", "BTCINR", "ETHINR"},
			MarketHoursOnly:    true,
			MaxOrdersPerMinute: 10,
			MarketTimeZone:     "Asia/Kolkata",
		},
		Trading: TradingConfig{
			Capital:             4_000,
			MaxRiskPerTrade:     0.08,
			TargetProfit:        0.15,
			ConfidenceThreshold: 0.7,
			AutoExecute:         false,
			SignalInterval:      duration{30 * time.Second},
			Symbols:             []string{"BTCINR"},
			DefaultBroker:       "coinswitch",
			PaperTrading:        true,
		},
		Tracker: TrackerConfig{
			MonitorInterval:   duration{60 * time.Second},
			StrikeDistancePct: 0.05,
			ExpiryDays:        7,
			FallbackPrice:     4_500_000,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:         true,
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimitWindow: duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"order_placed", "position_opened", "position_closed", "emergency_stop", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":   true,
	"trade":   true,
	"archive": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// HasDhan reports whether Dhan credentials are fully configured.
func (c *Config) HasDhan() bool {
	return c.Dhan.ClientID != "" && c.Dhan.AccessToken != ""
}

// HasCoinSwitch reports whether CoinSwitch credentials are fully configured.
func (c *Config) HasCoinSwitch() bool {
	return c.CoinSwitch.ApiKey != "" && c.CoinSwitch.ApiSecret != ""
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, trade, archive, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Brokers — trading modes need at least one credential source.
	needsBroker := c.Mode == "trade" || c.Mode == "full"
	if needsBroker && !c.HasDhan() && !c.HasCoinSwitch() && c.Secrets.Path == "" {
		errs = append(errs, "brokers: configure dhan, coinswitch, or secrets.path for mode "+c.Mode)
	}

	// Dhan — both fields must be set together, or both empty.
	if (c.Dhan.ClientID != "") != (c.Dhan.AccessToken != "") {
		errs = append(errs, "dhan: client_id and access_token must be set together")
	}

	// CoinSwitch — same pairing rule.
	if (c.CoinSwitch.ApiKey != "") != (c.CoinSwitch.ApiSecret != "") {
		errs = append(errs, "coinswitch: api_key and api_secret must be set together")
	}

	// Secrets
	if c.Secrets.Path != "" && c.Secrets.Password == "" {
		errs = append(errs, "secrets: password is required when path is set")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 — only needed when archival is enabled.
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}

	// Risk
	if c.Risk.MaxOrderValue <= 0 {
		errs = append(errs, "risk: max_order_value must be > 0")
	}
	if c.Risk.MaxDailyLoss <= 0 {
		errs = append(errs, "risk: max_daily_loss must be > 0")
	}
	if c.Risk.MaxPositionSize <= 0 {
		errs = append(errs, "risk: max_position_size must be > 0")
	}
	if c.Risk.MaxOpenPositions < 1 {
		errs = append(errs, "risk: max_open_positions must be >= 1")
	}
	if len(c.Risk.AllowedSymbols) == 0 {
		errs = append(errs, "risk: allowed_symbols must not be empty")
	}
	if c.Risk.MaxOrdersPerMinute < 1 {
		errs = append(errs, "risk: max_orders_per_minute must be >= 1")
	}
	if c.Risk.MarketTimeZone != "" {
		if _, err := time.LoadLocation(c.Risk.MarketTimeZone); err != nil {
			errs = append(errs, fmt.Sprintf("risk: unknown market_time_zone %q", c.Risk.MarketTimeZone))
		}
	}

	// Trading
	if c.Trading.Capital <= 0 {
		errs = append(errs, "trading: capital must be > 0")
	}
	if c.Trading.MaxRiskPerTrade <= 0 || c.Trading.MaxRiskPerTrade >= 1 {
		errs = append(errs, "trading: max_risk_per_trade must be in (0, 1)")
	}
	if c.Trading.TargetProfit <= 0 || c.Trading.TargetProfit >= 1 {
		errs = append(errs, "trading: target_profit must be in (0, 1)")
	}
	if c.Trading.ConfidenceThreshold <= 0 || c.Trading.ConfidenceThreshold > 1 {
		errs = append(errs, "trading: confidence_threshold must be in (0, 1]")
	}
	if c.Trading.SignalInterval.Duration <= 0 {
		errs = append(errs, "trading: signal_interval must be > 0")
	}
	if len(c.Trading.Symbols) == 0 {
		errs = append(errs, "trading: symbols must not be empty")
	}
	if b := domain.BrokerName(c.Trading.DefaultBroker); !domain.KnownBroker(b) {
		errs = append(errs, fmt.Sprintf("trading: unknown default_broker %q (valid: dhan, coinswitch)", c.Trading.DefaultBroker))
	}

	// Tracker
	if c.Tracker.MonitorInterval.Duration <= 0 {
		errs = append(errs, "tracker: monitor_interval must be > 0")
	}
	if c.Tracker.StrikeDistancePct <= 0 || c.Tracker.StrikeDistancePct >= 1 {
		errs = append(errs, "tracker: strike_distance_pct must be in (0, 1)")
	}
	if c.Tracker.ExpiryDays < 1 {
		errs = append(errs, "tracker: expiry_days must be >= 1")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
