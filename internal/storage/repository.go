package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	"ferrer/internal/core"
	"ferrer/internal/rates"

	_ "modernc.org/sqlite"
)

// Export run statuses.
const (
	ExportRunning   = "running"
	ExportSucceeded = "succeeded"
	ExportFailed    = "failed"
)

// ErrExportRunNotFound is returned when no run matches a request ID.
var ErrExportRunNotFound = errors.New("export run not found")

// SQLiteRepository keeps rate snapshots and the export log.
type SQLiteRepository struct {
	db *sqlx.DB
}

type snapshotRow struct {
	Base      string `db:"base"`
	RatesJSON string `db:"rates_json"`
	Source    string `db:"source"`
	FetchedAt int64  `db:"fetched_at"`
}

// ExportRun is one row of the export log.
type ExportRun struct {
	RequestID   string        `db:"request_id" json:"request_id"`
	RangeName   string        `db:"range_name" json:"range"`
	Status      string        `db:"status" json:"status"`
	Attempts    int           `db:"attempts" json:"attempts"`
	RowsWritten int           `db:"rows_written" json:"rows_written"`
	Error       string        `db:"error" json:"error,omitempty"`
	StartedAt   int64         `db:"started_at" json:"started_at"`
	FinishedAt  sql.NullInt64 `db:"finished_at" json:"-"`
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Name() string { return "sqlite" }

// Load returns the most recently fetched snapshot.
func (r *SQLiteRepository) Load(ctx context.Context) (rates.Snapshot, bool, error) {
	var row snapshotRow
	err := r.db.GetContext(ctx, &row, `
		SELECT base, rates_json, source, fetched_at
		FROM rate_snapshots
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return rates.Snapshot{}, false, nil
	}
	if err != nil {
		return rates.Snapshot{}, false, fmt.Errorf("load rate snapshot: %w", err)
	}

	var table core.RateTable
	if err := json.Unmarshal([]byte(row.RatesJSON), &table); err != nil {
		return rates.Snapshot{}, false, fmt.Errorf("decode rate snapshot: %w", err)
	}
	return rates.Snapshot{
		Base:      row.Base,
		Rates:     table,
		Source:    row.Source,
		FetchedAt: time.UnixMilli(row.FetchedAt).UTC(),
	}, true, nil
}

// Save appends a snapshot to the history.
func (r *SQLiteRepository) Save(ctx context.Context, snap rates.Snapshot) error {
	data, err := json.Marshal(snap.Rates)
	if err != nil {
		return fmt.Errorf("encode rate snapshot: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO rate_snapshots (base, rates_json, source, fetched_at)
		VALUES (?, ?, ?, ?)`,
		snap.Base, string(data), snap.Source, snap.FetchedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save rate snapshot: %w", err)
	}
	return nil
}

// PruneSnapshots keeps only the newest keep snapshots and returns how many
// were deleted.
func (r *SQLiteRepository) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM rate_snapshots
		WHERE id NOT IN (
			SELECT id FROM rate_snapshots ORDER BY fetched_at DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune rate snapshots: %w", err)
	}
	return res.RowsAffected()
}

// StartExportRun records that a request is being processed. Redelivered
// requests reuse their row and bump the attempt counter.
func (r *SQLiteRepository) StartExportRun(ctx context.Context, requestID, rangeName string, startedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO export_runs (request_id, range_name, status, attempts, started_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT (request_id) DO UPDATE SET
			status = excluded.status,
			attempts = export_runs.attempts + 1,
			error = '',
			started_at = excluded.started_at,
			finished_at = NULL`,
		requestID, rangeName, ExportRunning, startedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("start export run: %w", err)
	}
	return nil
}

// FinishExportRun stores the outcome of a run.
func (r *SQLiteRepository) FinishExportRun(ctx context.Context, requestID string, rows int, runErr error, finishedAt time.Time) error {
	status, msg := ExportSucceeded, ""
	if runErr != nil {
		status, msg = ExportFailed, runErr.Error()
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE export_runs
		SET status = ?, rows_written = ?, error = ?, finished_at = ?
		WHERE request_id = ?`,
		status, rows, msg, finishedAt.UnixMilli(), requestID)
	if err != nil {
		return fmt.Errorf("finish export run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrExportRunNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetExportRun(ctx context.Context, requestID string) (*ExportRun, error) {
	var run ExportRun
	err := r.db.GetContext(ctx, &run, `
		SELECT request_id, range_name, status, attempts, rows_written, error, started_at, finished_at
		FROM export_runs WHERE request_id = ?`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrExportRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get export run: %w", err)
	}
	return &run, nil
}

var _ rates.Store = (*SQLiteRepository)(nil)
