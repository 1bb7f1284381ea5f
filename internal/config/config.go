package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

const (
	PayPalSandboxURL = "https://api-m.sandbox.paypal.com"
	PayPalLiveURL    = "https://api-m.paypal.com"
)

type Config struct {
	// HTTP Server
	Port           string
	LogLevel       string
	RequestTimeout time.Duration
	RateLimitRPM   int

	// PayPal
	PayPalClientID     string
	PayPalClientSecret string
	PayPalEnv          string
	PayPalBaseURL      string

	// Exchange rates
	ExchangeRatesURL     string
	RatesCacheTTL        time.Duration
	RatesRefreshSchedule string
	RateStores           []string

	// Aggregation
	ConversionSpread string
	SkipUnknownPayer bool
	ReportCacheTTL   time.Duration
	ReportCacheSize  int

	// Redis
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Export
	ExportBackend       string
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8081"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		RateLimitRPM:   getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		PayPalClientID:     getEnv("PAYPAL_CLIENT_ID", ""),
		PayPalClientSecret: getEnv("PAYPAL_CLIENT_SECRET", ""),
		PayPalEnv:          getEnv("PAYPAL_ENV", "sandbox"),
		PayPalBaseURL:      getEnv("PAYPAL_BASE_URL", ""),

		ExchangeRatesURL:     getEnv("EXCHANGE_RATES_URL", "https://open.er-api.com/v6/latest/USD"),
		RatesCacheTTL:        getEnvDuration("RATES_CACHE_TTL", time.Hour),
		RatesRefreshSchedule: getEnv("RATES_REFRESH_SCHEDULE", "@every 1h"),
		RateStores:           getEnvList("RATE_STORES", []string{"memory"}),

		ConversionSpread: getEnv("CONVERSION_SPREAD", "0.045"),
		SkipUnknownPayer: getEnvBool("SKIP_UNKNOWN_PAYER", true),
		ReportCacheTTL:   getEnvDuration("REPORT_CACHE_TTL", 5*time.Minute),
		ReportCacheSize:  getEnvInt("REPORT_CACHE_SIZE", 16),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ferrer.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ferrer"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "earnings_exports"),

		ExportBackend:       getEnv("EXPORT_BACKEND", "memory"),
		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Earnings"),
	}

	if cfg.PayPalBaseURL == "" {
		cfg.PayPalBaseURL = PayPalBaseURLFor(cfg.PayPalEnv)
	}

	return cfg
}

// PayPalBaseURLFor maps PAYPAL_ENV onto the API host.
func PayPalBaseURLFor(env string) string {
	switch strings.ToLower(env) {
	case "live", "production":
		return PayPalLiveURL
	case "sandbox":
		return PayPalSandboxURL
	}
	return ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := c.SlogLevel(); err != nil {
		errors = append(errors, err.Error())
	}

	// PayPal credentials are checked lazily by the client so that the
	// server can still serve rates and health endpoints without them.
	if c.PayPalBaseURL == "" {
		errors = append(errors, fmt.Sprintf("invalid PayPal environment '%s': must be 'sandbox' or 'live' or set PAYPAL_BASE_URL", c.PayPalEnv))
	} else if u, err := url.Parse(c.PayPalBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid PayPal base URL '%s'", c.PayPalBaseURL))
	}

	if u, err := url.Parse(c.ExchangeRatesURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid exchange rates URL '%s'", c.ExchangeRatesURL))
	}

	if c.RatesCacheTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid rates cache TTL %v: must be at least 1 minute", c.RatesCacheTTL))
	}

	if _, err := cron.ParseStandard(c.RatesRefreshSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid rates refresh schedule '%s': %v", c.RatesRefreshSchedule, err))
	}

	if spread, err := decimal.NewFromString(c.ConversionSpread); err != nil {
		errors = append(errors, fmt.Sprintf("invalid conversion spread '%s': must be a decimal", c.ConversionSpread))
	} else if spread.IsNegative() || spread.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		errors = append(errors, fmt.Sprintf("invalid conversion spread %s: must be in [0, 1)", spread))
	}

	if c.ReportCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid report cache size %d: must not be negative", c.ReportCacheSize))
	}

	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}

	validStores := map[string]bool{"memory": true, "redis": true, "sqlite": true}
	for _, s := range c.RateStores {
		if !validStores[s] {
			errors = append(errors, fmt.Sprintf("invalid rate store '%s': must be one of memory, redis, sqlite", s))
		}
	}

	if c.HasRateStore("redis") {
		if c.RedisURL == "" {
			errors = append(errors, "REDIS_URL is required when the redis rate store is enabled")
		} else if u, err := url.Parse(c.RedisURL); err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			errors = append(errors, fmt.Sprintf("invalid Redis URL '%s': scheme must be 'redis' or 'rediss'", c.RedisURL))
		}
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch c.ExportBackend {
	case "memory":
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets export backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets export backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid export backend '%s': must be one of [memory sheets]", c.ExportBackend))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// HasRateStore reports whether the named rate store is enabled.
func (c *Config) HasRateStore(name string) bool {
	for _, s := range c.RateStores {
		if s == name {
			return true
		}
	}
	return false
}

// Spread returns the parsed conversion spread. Call Validate first.
func (c *Config) Spread() decimal.Decimal {
	d, err := decimal.NewFromString(c.ConversionSpread)
	if err != nil {
		return decimal.RequireFromString("0.045")
	}
	return d
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(strings.ToLower(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
