package main

import (
	"context"
	"errors"
	"os"

	"ferrer/internal/amqp"
	"ferrer/internal/cli"
	"ferrer/internal/log"
	"ferrer/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)
	logger.Info("Starting earnings-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the earnings worker")
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	be := cli.InitBackend(ctx, cfg, logger)
	defer cli.RunCleanup(logger, "backend", be.Cleanup)

	api := cli.NewPayPalClient(cfg, logger)
	provider := cli.NewRatesProvider(cfg, be.Stores, logger)
	earnings := cli.NewEarningsService(cfg, api, provider, logger)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		cli.RunCleanup(logger, "backend", be.Cleanup)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(earnings, be.Exporter, be.Repository, logger)

	logger.Info("Consuming export requests",
		"queue", cfg.AMQPQueue,
		"exporter", cfg.ExportBackend)

	if err := amqpClient.ConsumeExportRequests(ctx, exportWorker.HandleExportRequest); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		cli.RunCleanup(logger, "backend", be.Cleanup)
		os.Exit(1)
	}

	logger.Info("Worker shutdown complete")
}
