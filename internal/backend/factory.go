package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ferrer/internal/log"
	"ferrer/internal/rates"
	"ferrer/internal/sheets"
	gsheet "ferrer/internal/sheets/google"
	"ferrer/internal/sheets/memory"
	"ferrer/internal/storage"
)

const redisPingTimeout = 3 * time.Second

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend opens the SQLite repository, connects the rate store
// chain in configured order and builds the exporter.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	result := &BackendResult{Config: config}
	var cleanups []CleanupFunc
	fail := func(err error) (*BackendResult, error) {
		runCleanups(cleanups)
		return nil, err
	}

	if config.SQLiteDBPath != "" {
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return fail(fmt.Errorf("failed to initialize SQLite repository: %w", err))
		}
		result.Repository = repo
		cleanups = append(cleanups, repo.Close)
	}

	for _, st := range config.RateStores {
		switch st {
		case MemoryStore:
			result.Stores = append(result.Stores, rates.NewMemoryStore())
		case RedisStore:
			client, err := f.createRedisClient(ctx, config)
			if err != nil {
				return fail(err)
			}
			result.Redis = client
			cleanups = append(cleanups, client.Close)
			result.Stores = append(result.Stores, rates.NewRedisStore(client, rates.DefaultRedisKey, config.RedisTTL))
		case SQLiteStore:
			result.Stores = append(result.Stores, result.Repository)
		}
	}

	exporter, err := f.createExporter(ctx, config)
	if err != nil {
		return fail(err)
	}
	result.Exporter = exporter

	result.Cleanup = func() error {
		return runCleanups(cleanups)
	}

	f.logger.Info("Initialized backend",
		"rate_stores", config.RateStores,
		"exporter", config.Exporter.String(),
		"db_path", config.SQLiteDBPath)

	return result, nil
}

func (f *DefaultFactory) createRedisClient(ctx context.Context, config Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse Redis URL: %w", err)
	}
	if config.RedisPassword != "" {
		opts.Password = config.RedisPassword
	}
	if config.RedisDB != 0 {
		opts.DB = config.RedisDB
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		// The rate provider tolerates store failures, so an unreachable
		// Redis only degrades caching.
		f.logger.Warn("Redis not reachable, continuing with degraded rate cache",
			log.FieldError, err, "addr", opts.Addr)
	} else {
		f.logger.Info("Connected to Redis", "addr", opts.Addr, "db", opts.DB)
	}

	return client, nil
}

func (f *DefaultFactory) createExporter(ctx context.Context, config Config) (sheets.ReportExporter, error) {
	switch config.Exporter {
	case SheetsExporter:
		cli, err := gsheet.New(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets exporter", "spreadsheet_id", config.GoogleSpreadsheetID)
		return cli, nil
	default:
		f.logger.Info("Initialized memory exporter")
		return memory.New(), nil
	}
}

func runCleanups(cleanups []CleanupFunc) error {
	var errs []error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
