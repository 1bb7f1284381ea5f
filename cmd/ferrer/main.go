package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ferrer/internal/amqp"
	"ferrer/internal/cli"
	apphttp "ferrer/internal/http"
	"ferrer/internal/log"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	be := cli.InitBackend(ctx, cfg, logger)
	defer cli.RunCleanup(logger, "backend", be.Cleanup)

	api := cli.NewPayPalClient(cfg, logger)
	provider := cli.NewRatesProvider(cfg, be.Stores, logger)

	deps := apphttp.Deps{
		Earnings: cli.NewEarningsService(cfg, api, provider, logger),
		Orders:   cli.NewOrderResolver(api, logger),
		Rates:    provider,
		ReadyChecks: map[string]apphttp.ReadyCheck{
			"sqlite": be.Repository.Ping,
		},
		Logger: logger,
	}
	if be.Redis != nil {
		deps.ReadyChecks["redis"] = func(ctx context.Context) error { return be.Redis.Ping(ctx).Err() }
	}

	// Exports are optional; without AMQP the endpoint answers 503.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, exports disabled", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			deps.Exports = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - exports endpoint will return 503")
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps, apphttp.Options{
		RequestTimeout:  cfg.RequestTimeout,
		RateLimitRPM:    cfg.RateLimitRPM,
		ReportCacheTTL:  cfg.ReportCacheTTL,
		ReportCacheSize: cfg.ReportCacheSize,
	})
	srv.MaxHeaderBytes = 1 << 16

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	}()

	logger.Info("Starting ferrer server",
		"port", cfg.Port,
		"paypal_base_url", cfg.PayPalBaseURL,
		"rate_stores", cfg.RateStores)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		cli.RunCleanup(logger, "backend", be.Cleanup)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
