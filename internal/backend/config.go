package backend

import (
	"fmt"
	"strings"
	"time"

	"ferrer/internal/config"
)

// redisSnapshotTTL keeps snapshots in Redis well past the cache TTL so a
// stale copy survives a provider outage.
const redisSnapshotTTL = 24 * time.Hour

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	stores := make([]StoreType, 0, len(appConfig.RateStores))
	for _, s := range appConfig.RateStores {
		st := StoreType(s)
		if !st.IsValid() {
			return Config{}, fmt.Errorf("invalid rate store in config: %s (valid: %s)",
				s, strings.Join(GetStoreTypeStrings(), ", "))
		}
		stores = append(stores, st)
	}

	exporter := ExporterType(appConfig.ExportBackend)
	if !exporter.IsValid() {
		return Config{}, fmt.Errorf("invalid export backend in config: %s", appConfig.ExportBackend)
	}

	redisTTL := redisSnapshotTTL
	if appConfig.RatesCacheTTL > redisTTL {
		redisTTL = 2 * appConfig.RatesCacheTTL
	}

	return Config{
		RateStores: stores,

		RedisURL:      appConfig.RedisURL,
		RedisPassword: appConfig.RedisPassword,
		RedisDB:       appConfig.RedisDB,
		RedisTTL:      redisTTL,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		Exporter:            exporter,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	for _, st := range c.RateStores {
		switch st {
		case RedisStore:
			if c.RedisURL == "" {
				return fmt.Errorf("Redis URL is required for the redis rate store")
			}
		case SQLiteStore:
			if c.SQLiteDBPath == "" {
				return fmt.Errorf("SQLite database path is required for the sqlite rate store")
			}
		case MemoryStore:
		default:
			return fmt.Errorf("invalid rate store: %s", st)
		}
	}

	switch c.Exporter {
	case SheetsExporter:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets exporter")
		}
		if c.GoogleSheetName == "" {
			return fmt.Errorf("Google Sheet name is required for sheets exporter")
		}
	case MemoryExporter:
	default:
		return fmt.Errorf("invalid exporter type: %s", c.Exporter)
	}

	return nil
}

// HasStore reports whether st is part of the rate store chain.
func (c Config) HasStore(st StoreType) bool {
	for _, s := range c.RateStores {
		if s == st {
			return true
		}
	}
	return false
}

// SharesRates reports whether the chain holds a store visible to other
// processes. A memory-only chain cannot receive rates refreshed elsewhere.
func (c Config) SharesRates() bool {
	return c.HasStore(RedisStore) || c.HasStore(SQLiteStore)
}

// GetStoreTypeStrings returns all valid rate store names
func GetStoreTypeStrings() []string {
	types := []StoreType{MemoryStore, RedisStore, SQLiteStore}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
