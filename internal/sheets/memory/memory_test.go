package memory

import (
	"context"
	"testing"

	"ferrer/internal/core"
)

func TestStoreExport(t *testing.T) {
	s := New()
	report := &core.EarningsReport{
		DateRange:    core.DateRange{Name: core.Range90Days},
		Transactions: []core.Transaction{{ID: "A"}, {ID: "B"}},
	}

	res, err := s.Export(context.Background(), report)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Rows != 2 || res.Ref != "memory 90d#1" {
		t.Fatalf("unexpected result %+v", res)
	}

	rows, ok := s.Rows(core.Range90Days)
	if !ok || len(rows) != 11 {
		t.Fatalf("rows = %d, ok = %v", len(rows), ok)
	}
	if _, ok := s.Rows(core.Range30Days); ok {
		t.Fatalf("no export expected for 30d")
	}
	if _, err := s.Export(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil report")
	}
	if s.Count() != 1 {
		t.Fatalf("count = %d", s.Count())
	}
}
