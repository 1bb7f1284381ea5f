package sheets

import (
	"context"

	"ferrer/internal/core"
)

// ExportResult describes where a report was written.
type ExportResult struct {
	Ref  string `json:"ref"`
	Rows int    `json:"rows"`
}

// ReportExporter writes an earnings report to an outbound destination.
type ReportExporter interface {
	Export(ctx context.Context, report *core.EarningsReport) (ExportResult, error)
}
