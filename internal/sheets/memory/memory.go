package memory

import (
	"context"
	"fmt"
	"sync"

	"ferrer/internal/core"
	ports "ferrer/internal/sheets"
)

// Store keeps exported reports in memory. Used in development and tests.
type Store struct {
	mu      sync.RWMutex
	exports map[string][][]any
	count   int
}

var _ ports.ReportExporter = (*Store)(nil)

func New() *Store {
	return &Store{exports: make(map[string][][]any)}
}

func (s *Store) Export(_ context.Context, report *core.EarningsReport) (ports.ExportResult, error) {
	if report == nil {
		return ports.ExportResult{}, fmt.Errorf("nil report")
	}
	rows := ports.ReportRows(report)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	title := ports.SheetTitle("memory", report)
	s.exports[title] = rows
	return ports.ExportResult{Ref: fmt.Sprintf("%s#%d", title, s.count), Rows: len(report.Transactions)}, nil
}

// Rows returns the last export written for the given range.
func (s *Store) Rows(name core.RangeName) ([][]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, ok := s.exports[fmt.Sprintf("memory %s", name)]
	return rows, ok
}

// Count returns how many exports have been written.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}
