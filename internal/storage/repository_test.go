package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ferrer/internal/core"
	"ferrer/internal/rates"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "ferrer.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRateSnapshots(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, ok, err := repo.Load(ctx); err != nil || ok {
		t.Fatalf("empty repo: ok=%v err=%v", ok, err)
	}

	base := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	for i, eur := range []string{"0.91", "0.93", "0.92"} {
		snap := rates.Snapshot{
			Base:      "USD",
			Rates:     core.RateTable{"USD": decimal.NewFromInt(1), "EUR": decimal.RequireFromString(eur)},
			FetchedAt: base.Add(time.Duration(i) * time.Hour),
			Source:    rates.SourceLive,
		}
		if err := repo.Save(ctx, snap); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	snap, ok, err := repo.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if !snap.Rates["EUR"].Equal(decimal.RequireFromString("0.92")) {
		t.Fatalf("expected newest snapshot, got EUR=%s", snap.Rates["EUR"])
	}
	if !snap.FetchedAt.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("fetched_at = %v", snap.FetchedAt)
	}

	n, err := repo.PruneSnapshots(ctx, 1)
	if err != nil || n != 2 {
		t.Fatalf("PruneSnapshots = %d, %v; want 2", n, err)
	}
}

func TestExportRuns(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	if err := repo.StartExportRun(ctx, "req-1", "30d", now); err != nil {
		t.Fatalf("StartExportRun: %v", err)
	}
	if err := repo.FinishExportRun(ctx, "req-1", 0, errors.New("sheets unavailable"), now); err != nil {
		t.Fatalf("FinishExportRun: %v", err)
	}
	if err := repo.StartExportRun(ctx, "req-1", "30d", now); err != nil {
		t.Fatalf("StartExportRun retry: %v", err)
	}
	if err := repo.FinishExportRun(ctx, "req-1", 42, nil, now); err != nil {
		t.Fatalf("FinishExportRun: %v", err)
	}

	run, err := repo.GetExportRun(ctx, "req-1")
	if err != nil {
		t.Fatalf("GetExportRun: %v", err)
	}
	if run.Status != ExportSucceeded || run.Attempts != 2 || run.RowsWritten != 42 || run.Error != "" {
		t.Fatalf("unexpected run %+v", run)
	}

	if _, err := repo.GetExportRun(ctx, "missing"); !errors.Is(err, ErrExportRunNotFound) {
		t.Fatalf("expected ErrExportRunNotFound, got %v", err)
	}
	if err := repo.FinishExportRun(ctx, "missing", 0, nil, now); !errors.Is(err, ErrExportRunNotFound) {
		t.Fatalf("expected ErrExportRunNotFound, got %v", err)
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	for i := 0; i < 2; i++ {
		if err := RunMigrations(path); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
}
