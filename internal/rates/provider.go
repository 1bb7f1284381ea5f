package rates

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"ferrer/internal/core"
	"ferrer/internal/log"
)

const DefaultTTL = time.Hour

// CachedProvider serves the first store snapshot younger than the TTL and
// refreshes from the source otherwise. Concurrent refreshes share a single
// upstream call.
type CachedProvider struct {
	source   Source
	stores   []Store
	ttl      time.Duration
	fallback core.RateTable
	now      func() time.Time
	logger   *log.Logger
	group    singleflight.Group
}

// Option customizes a CachedProvider.
type Option func(*CachedProvider)

func WithTTL(ttl time.Duration) Option {
	return func(p *CachedProvider) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *CachedProvider) { p.now = now }
}

func WithFallback(table core.RateTable) Option {
	return func(p *CachedProvider) { p.fallback = table }
}

func WithLogger(logger *log.Logger) Option {
	return func(p *CachedProvider) { p.logger = logger.WithComponent(log.ComponentRates) }
}

// NewCachedProvider builds a provider. With no stores an in-memory store is
// used.
func NewCachedProvider(source Source, stores []Store, opts ...Option) *CachedProvider {
	if len(stores) == 0 {
		stores = []Store{NewMemoryStore()}
	}
	p := &CachedProvider{
		source:   source,
		stores:   stores,
		ttl:      DefaultTTL,
		fallback: Fallback(),
		now:      time.Now,
		logger:   log.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get returns a fresh-enough cached table or refreshes it.
func (p *CachedProvider) Get(ctx context.Context) (Snapshot, error) {
	now := p.now()
	for i, store := range p.stores {
		snap, ok, err := store.Load(ctx)
		if err != nil {
			p.logger.WarnContext(ctx, "Rate store load failed", "store", store.Name(), log.FieldError, err)
			continue
		}
		if !ok || snap.Age(now) >= p.ttl {
			continue
		}
		if i > 0 {
			p.saveAll(ctx, snap, p.stores[:i])
		}
		snap.Source = SourceCache
		return snap, nil
	}
	return p.Refresh(ctx)
}

// Refresh fetches a new table and writes it to every store. Upstream
// failures degrade to the newest stored snapshot and then to the static
// table; only context cancellation is returned as an error.
func (p *CachedProvider) Refresh(ctx context.Context) (Snapshot, error) {
	v, err, _ := p.group.Do("refresh", func() (any, error) {
		return p.refresh(ctx)
	})
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

func (p *CachedProvider) refresh(ctx context.Context) (Snapshot, error) {
	table, err := p.source.Fetch(ctx)
	if err == nil {
		snap := Snapshot{Base: core.BaseCurrency, Rates: table, FetchedAt: p.now(), Source: SourceLive}
		p.saveAll(ctx, snap, p.stores)
		p.logger.InfoContext(ctx, "Exchange rates refreshed",
			"source", p.source.Name(),
			log.FieldCount, len(table))
		return snap, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Snapshot{}, ctxErr
		}
	}

	p.logger.WarnContext(ctx, "Exchange rate fetch failed, degrading",
		"source", p.source.Name(),
		log.FieldOperation, log.OpRefresh,
		log.FieldError, err)

	if snap, ok := p.newestStored(ctx); ok {
		snap.Source = SourceStale
		return snap, nil
	}
	return Snapshot{
		Base:      core.BaseCurrency,
		Rates:     p.fallback.Clone(),
		FetchedAt: p.now(),
		Source:    SourceFallback,
	}, nil
}

func (p *CachedProvider) newestStored(ctx context.Context) (Snapshot, bool) {
	var best Snapshot
	found := false
	for _, store := range p.stores {
		snap, ok, err := store.Load(ctx)
		if err != nil || !ok {
			continue
		}
		if !found || snap.FetchedAt.After(best.FetchedAt) {
			best, found = snap, true
		}
	}
	return best, found
}

func (p *CachedProvider) saveAll(ctx context.Context, snap Snapshot, stores []Store) {
	for _, store := range stores {
		if err := store.Save(ctx, snap); err != nil {
			p.logger.WarnContext(ctx, "Rate store save failed", "store", store.Name(), log.FieldError, err)
		}
	}
}

var _ Provider = (*CachedProvider)(nil)
