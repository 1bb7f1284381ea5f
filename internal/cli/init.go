// Package cli provides the process bootstrap shared by every binary under
// cmd/.
package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ferrer/internal/backend"
	"ferrer/internal/config"
	"ferrer/internal/core"
	"ferrer/internal/log"
	"ferrer/internal/paypal"
	"ferrer/internal/rates"
	"ferrer/internal/services"
)

// PayPalAPI is what the services need from the payments API.
type PayPalAPI interface {
	services.TransactionSource
	services.DetailFetcher
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and installs it as
// the slog default. An invalid level falls back to info; Validate reports it.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	level, _ := cfg.SlogLevel()
	logger := log.New(log.Config{
		Level:     level,
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// Bootstrap loads .env and configuration, then sets up logging. The
// process exits when validation fails.
func Bootstrap(component string) (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// InitBackend builds the rate stores and exporter or exits the process.
func InitBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	return res
}

// NewPayPalClient returns the API client. Missing credentials yield a
// stand-in that fails every call with the configuration error.
func NewPayPalClient(cfg *config.Config, logger *log.Logger) PayPalAPI {
	client, err := paypal.NewClient(paypal.Config{
		BaseURL:      cfg.PayPalBaseURL,
		ClientID:     cfg.PayPalClientID,
		ClientSecret: cfg.PayPalClientSecret,
		Timeout:      cfg.RequestTimeout,
	}, logger)
	if err != nil {
		var cfgErr *core.ConfigError
		if errors.As(err, &cfgErr) {
			logger.Warn("PayPal is not configured, earnings and order endpoints will fail",
				"missing", cfgErr.Field)
			return paypal.Unavailable{Err: err}
		}
		logger.Error("Failed to initialize PayPal client", log.FieldError, err)
		os.Exit(1)
	}
	return client
}

// NewRatesProvider builds the cached exchange-rate provider over stores.
func NewRatesProvider(cfg *config.Config, stores []rates.Store, logger *log.Logger) *rates.CachedProvider {
	source := rates.NewHTTPSource(cfg.ExchangeRatesURL, &http.Client{Timeout: 10 * time.Second})
	return rates.NewCachedProvider(source, stores,
		rates.WithTTL(cfg.RatesCacheTTL),
		rates.WithLogger(logger))
}

// NewEarningsService wires the aggregator with configured options.
func NewEarningsService(cfg *config.Config, api services.TransactionSource, provider rates.Provider, logger *log.Logger) *services.EarningsService {
	opts := services.DefaultEarningsOptions()
	opts.Spread = cfg.Spread()
	opts.SkipUnknownPayer = cfg.SkipUnknownPayer
	return services.NewEarningsService(api, provider, opts, logger)
}

// NewOrderResolver wires the capture, order and sale strategies.
func NewOrderResolver(api services.DetailFetcher, logger *log.Logger) *services.OrderResolver {
	return services.NewOrderResolver(logger, services.DefaultStrategies(api, logger)...)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// RunCleanup runs cleanup and logs its error.
func RunCleanup(logger *log.Logger, name string, cleanup func() error) {
	if cleanup == nil {
		return
	}
	if err := cleanup(); err != nil {
		logger.Error("Cleanup failed", "resource", name, log.FieldError, err)
	}
}
