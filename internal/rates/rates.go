// Package rates provides the USD exchange-rate table used to normalize
// earnings. Tables are fetched from a public endpoint, kept in an ordered
// chain of stores and replaced by a static table when nothing else is
// available.
package rates

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ferrer/internal/core"
)

const (
	SourceLive     = "live"
	SourceCache    = "cache"
	SourceStale    = "stale"
	SourceFallback = "fallback"
)

// Snapshot is a rate table together with when and where it came from.
type Snapshot struct {
	Base      string         `json:"base"`
	Rates     core.RateTable `json:"rates"`
	FetchedAt time.Time      `json:"fetched_at"`
	Source    string         `json:"source"`
}

// Age returns how old the snapshot is at now.
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// Provider hands out the current rate table.
type Provider interface {
	Get(ctx context.Context) (Snapshot, error)
	Refresh(ctx context.Context) (Snapshot, error)
}

// Source fetches a fresh table from upstream.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (core.RateTable, error)
}

// Store persists snapshots. Load reports false when nothing is stored.
type Store interface {
	Name() string
	Load(ctx context.Context) (Snapshot, bool, error)
	Save(ctx context.Context, snap Snapshot) error
}

// Fallback returns the static table used when no fetched table exists.
func Fallback() core.RateTable {
	return core.RateTable{
		"USD": decimal.NewFromInt(1),
		"EUR": decimal.RequireFromString("0.92"),
		"GBP": decimal.RequireFromString("0.79"),
		"BRL": decimal.RequireFromString("5.00"),
		"CAD": decimal.RequireFromString("1.36"),
		"MXN": decimal.RequireFromString("17.10"),
	}
}
