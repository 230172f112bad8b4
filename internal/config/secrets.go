package config

import (
	"fmt"

	"github.com/infinityai/tradebot/internal/crypto"
)

// Broker credential keys recognized inside an encrypted secrets file.
const (
	SecretDhanClientID     = "dhan_client_id"
	SecretDhanAccessToken  = "dhan_access_token"
	SecretCoinSwitchApiKey = "coinswitch_api_key"
	SecretCoinSwitchSecret = "coinswitch_api_secret"
	SecretServerApiKey     = "server_api_key"
	SecretTelegramToken    = "telegram_token"
	SecretPostgresPassword = "postgres_password"
	SecretRedisPassword    = "redis_password"
	SecretS3AccessKey      = "s3_access_key"
	SecretS3SecretKey      = "s3_secret_key"
)

// ApplySecrets decrypts the configured secrets file, if any, and overlays the
// credentials it contains onto cfg. Values from the file win over plaintext
// TOML and environment values.
func ApplySecrets(cfg *Config) error {
	if cfg.Secrets.Path == "" {
		return nil
	}

	secrets, err := crypto.LoadSecrets(crypto.SecretsConfig{
		Path:     cfg.Secrets.Path,
		Password: cfg.Secrets.Password,
	})
	if err != nil {
		return fmt.Errorf("config: load secrets: %w", err)
	}

	overlay(&cfg.Dhan.ClientID, secrets, SecretDhanClientID)
	overlay(&cfg.Dhan.AccessToken, secrets, SecretDhanAccessToken)
	overlay(&cfg.CoinSwitch.ApiKey, secrets, SecretCoinSwitchApiKey)
	overlay(&cfg.CoinSwitch.ApiSecret, secrets, SecretCoinSwitchSecret)
	overlay(&cfg.Server.ApiKey, secrets, SecretServerApiKey)
	overlay(&cfg.Notify.TelegramToken, secrets, SecretTelegramToken)
	overlay(&cfg.Postgres.Password, secrets, SecretPostgresPassword)
	overlay(&cfg.Redis.Password, secrets, SecretRedisPassword)
	overlay(&cfg.S3.AccessKey, secrets, SecretS3AccessKey)
	overlay(&cfg.S3.SecretKey, secrets, SecretS3SecretKey)

	return nil
}

func overlay(dst *string, secrets map[string]string, key string) {
	if v, ok := secrets[key]; ok && v != "" {
		*dst = v
	}
}

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	// Dhan
	out.Dhan = cfg.Dhan
	redact(&out.Dhan.AccessToken)

	// CoinSwitch
	out.CoinSwitch = cfg.CoinSwitch
	redact(&out.CoinSwitch.ApiKey)
	redact(&out.CoinSwitch.ApiSecret)

	// Secrets
	out.Secrets = cfg.Secrets
	redact(&out.Secrets.Password)

	// Postgres
	out.Postgres = cfg.Postgres
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	// Redis
	out.Redis = cfg.Redis
	redact(&out.Redis.Password)

	// S3
	out.S3 = cfg.S3
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	// Server
	out.Server = cfg.Server
	redact(&out.Server.ApiKey)

	// Notify
	out.Notify = cfg.Notify
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	if cfg.Notify.Events != nil {
		out.Notify.Events = make([]string, len(cfg.Notify.Events))
		copy(out.Notify.Events, cfg.Notify.Events)
	}
	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = make([]string, len(cfg.Server.CORSOrigins))
		copy(out.Server.CORSOrigins, cfg.Server.CORSOrigins)
	}
	if cfg.Risk.AllowedSymbols != nil {
		out.Risk.AllowedSymbols = make([]string, len(cfg.Risk.AllowedSymbols))
		copy(out.Risk.AllowedSymbols, cfg.Risk.AllowedSymbols)
	}
	if cfg.Trading.Symbols != nil {
		out.Trading.Symbols = make([]string, len(cfg.Trading.Symbols))
		copy(out.Trading.Symbols, cfg.Trading.Symbols)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
