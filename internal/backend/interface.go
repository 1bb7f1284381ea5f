package backend

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"ferrer/internal/rates"
	"ferrer/internal/sheets"
	"ferrer/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the stores and exporter built from configuration.
type BackendResult struct {
	// Stores is the rate cache chain, fastest first.
	Stores     []rates.Store
	Repository *storage.SQLiteRepository
	Redis      *redis.Client
	Exporter   sheets.ReportExporter
	Cleanup    CleanupFunc
	// Config is the configuration the backend was built from.
	Config Config
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Rate stores in lookup order
	RateStores []StoreType

	// Redis specific
	RedisURL      string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	// SQLite specific
	SQLiteDBPath string

	// Export destination
	Exporter            ExporterType
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

// StoreType names one tier of the rate cache.
type StoreType string

const (
	MemoryStore StoreType = "memory"
	RedisStore  StoreType = "redis"
	SQLiteStore StoreType = "sqlite"
)

func (st StoreType) String() string {
	return string(st)
}

func (st StoreType) IsValid() bool {
	switch st {
	case MemoryStore, RedisStore, SQLiteStore:
		return true
	default:
		return false
	}
}

// ExporterType represents where reports are exported.
type ExporterType string

const (
	MemoryExporter ExporterType = "memory"
	SheetsExporter ExporterType = "sheets"
)

// String implements fmt.Stringer
func (et ExporterType) String() string {
	return string(et)
}

// IsValid returns true if the exporter type is valid
func (et ExporterType) IsValid() bool {
	switch et {
	case MemoryExporter, SheetsExporter:
		return true
	default:
		return false
	}
}
