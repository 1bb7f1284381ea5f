package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"ferrer/internal/backend"
	"ferrer/internal/cli"
	"ferrer/internal/log"
	"ferrer/internal/rates"
	"ferrer/internal/storage"
)

// snapshotsKept bounds the rate_snapshots history.
const snapshotsKept = 500

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentRates)
	logger.Info("Starting rates-refresh", "schedule", cfg.RatesRefreshSchedule)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	be := cli.InitBackend(ctx, cfg, logger)
	defer cli.RunCleanup(logger, "backend", be.Cleanup)

	if !be.Config.SharesRates() {
		logger.Warn("RATE_STORES has no shared store, servers will not see refreshed rates",
			"rate_stores", cfg.RateStores,
			"hint", "add redis or sqlite to RATE_STORES")
	}

	// Always keep history in SQLite, even when it is not a lookup tier.
	stores := be.Stores
	if !be.Config.HasStore(backend.SQLiteStore) {
		stores = append(stores, be.Repository)
	}
	provider := cli.NewRatesProvider(cfg, stores, logger)

	refresh := func() {
		runCtx, runCancel := context.WithTimeout(ctx, time.Minute)
		defer runCancel()
		refreshOnce(runCtx, provider, be.Repository, logger)
	}

	refresh()

	c := cron.New()
	if _, err := c.AddFunc(cfg.RatesRefreshSchedule, refresh); err != nil {
		logger.Error("Invalid refresh schedule", log.FieldError, err)
		return
	}
	c.Start()

	<-ctx.Done()
	logger.Info("Stopping scheduler")
	<-c.Stop().Done()
	logger.Info("Rates refresher stopped")
}

func refreshOnce(ctx context.Context, provider *rates.CachedProvider, repo *storage.SQLiteRepository, logger *log.Logger) {
	start := time.Now()
	snap, err := provider.Refresh(ctx)
	if err != nil {
		logger.Error("Rates refresh failed", log.FieldError, err, log.FieldOperation, log.OpRefresh)
		return
	}
	logger.Info("Rates refreshed",
		log.FieldRatesSource, snap.Source,
		log.FieldCount, len(snap.Rates),
		log.FieldDuration, time.Since(start).Milliseconds())

	if snap.Source != rates.SourceLive {
		logger.Warn("Exchange-rate source unavailable, serving degraded table", log.FieldRatesSource, snap.Source)
	}

	pruned, err := repo.PruneSnapshots(ctx, snapshotsKept)
	if err != nil {
		logger.Error("Failed to prune rate snapshots", log.FieldError, err)
		return
	}
	if pruned > 0 {
		logger.Debug("Pruned rate snapshots", "removed", pruned)
	}
}
