package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ferrer/internal/amqp"
	"ferrer/internal/core"
	"ferrer/internal/log"
	"ferrer/internal/sheets"
)

// ReportAggregator builds the earnings report for a named range.
type ReportAggregator interface {
	Aggregate(ctx context.Context, name core.RangeName) (*core.EarningsReport, error)
}

// RunLog records export attempts and their outcome.
type RunLog interface {
	StartExportRun(ctx context.Context, requestID, rangeName string, startedAt time.Time) error
	FinishExportRun(ctx context.Context, requestID string, rows int, runErr error, finishedAt time.Time) error
}

// ExportWorker turns export requests into exported reports.
type ExportWorker struct {
	aggregator ReportAggregator
	exporter   sheets.ReportExporter
	runs       RunLog
	logger     *log.Logger
	now        func() time.Time
}

func NewExportWorker(aggregator ReportAggregator, exporter sheets.ReportExporter, runs RunLog, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		aggregator: aggregator,
		exporter:   exporter,
		runs:       runs,
		logger:     logger.WithComponent(log.ComponentWorker),
		now:        time.Now,
	}
}

// HandleExportRequest processes a single export request from AMQP.
// An invalid range is logged and acknowledged since retrying cannot fix it.
func (w *ExportWorker) HandleExportRequest(ctx context.Context, msg *amqp.ExportRequestMessage) error {
	w.logger.InfoContext(ctx, "Processing export request",
		log.FieldRequestID, msg.RequestID,
		log.FieldRange, msg.Range)

	name, err := core.ParseRangeName(msg.Range)
	if err != nil {
		w.logger.WarnContext(ctx, "Dropping export request with invalid range",
			log.FieldRequestID, msg.RequestID,
			log.FieldRange, msg.Range,
			log.FieldError, err)
		return nil
	}

	if w.runs != nil {
		if err := w.runs.StartExportRun(ctx, msg.RequestID, string(name), w.now()); err != nil {
			w.logger.ErrorContext(ctx, "Failed to record export start", log.FieldRequestID, msg.RequestID, log.FieldError, err)
		}
	}

	rows, runErr := w.export(ctx, name)

	if w.runs != nil {
		// The outcome is recorded even when ctx was cancelled mid-run.
		recordCtx := context.WithoutCancel(ctx)
		if err := w.runs.FinishExportRun(recordCtx, msg.RequestID, rows, runErr, w.now()); err != nil {
			w.logger.ErrorContext(ctx, "Failed to record export outcome", log.FieldRequestID, msg.RequestID, log.FieldError, err)
		}
	}

	return runErr
}

func (w *ExportWorker) export(ctx context.Context, name core.RangeName) (int, error) {
	start := w.now()

	report, err := w.aggregator.Aggregate(ctx, name)
	if err != nil {
		var fetchErr *core.FetchError
		if errors.As(err, &fetchErr) {
			w.logger.ErrorContext(ctx, "PayPal fetch failed during export",
				log.FieldEndpoint, fetchErr.Endpoint,
				log.FieldStatusCode, fetchErr.StatusCode)
		}
		return 0, fmt.Errorf("aggregate %s: %w", name, err)
	}

	result, err := w.exporter.Export(ctx, report)
	if err != nil {
		return 0, fmt.Errorf("export %s: %w", name, err)
	}

	w.logger.InfoContext(ctx, "Export completed",
		log.FieldRange, string(name),
		"ref", result.Ref,
		"rows", result.Rows,
		log.FieldCount, report.Summary.TransactionCount,
		log.FieldDuration, w.now().Sub(start).Milliseconds())

	return result.Rows, nil
}
