package http

import (
	"context"
	"net/http"
	"sync/atomic"

	"ferrer/internal/amqp"
	"ferrer/internal/core"
	"ferrer/internal/log"
)

// handleEarnings serves GET /api/earnings?range=30d.
func (s *Server) handleEarnings(w http.ResponseWriter, r *http.Request) {
	name, err := s.parseRange(r)
	if err != nil {
		s.writeError(w, r, err, log.OpValidate)
		return
	}

	report, err := s.report(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err, log.OpAggregate)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// report returns a cached report or builds one. Concurrent requests for
// the same range share a single aggregation.
func (s *Server) report(ctx context.Context, name core.RangeName) (*core.EarningsReport, error) {
	key := string(name)
	if s.reports != nil {
		if report, ok := s.reports.Get(key); ok {
			log.FromContext(ctx, s.logger).DebugContext(ctx, "Report cache hit", log.FieldRange, key)
			return report, nil
		}
	}

	ch := s.inflight.DoChan(key, func() (any, error) {
		// Detached from the first caller so its cancellation does not fail
		// the others waiting on the same key.
		aggCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.RequestTimeout)
		defer cancel()

		report, err := s.deps.Earnings.Aggregate(aggCtx, name)
		if err != nil {
			return nil, err
		}
		atomic.AddInt64(&s.metrics.reportsBuilt, 1)
		if s.reports != nil {
			s.reports.Set(key, report)
		}
		return report, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*core.EarningsReport), nil
	}
}

type exportAccepted struct {
	RequestID string `json:"request_id"`
	Range     string `json:"range"`
	Status    string `json:"status"`
}

// handleCreateExport serves POST /api/earnings/exports?range=90d.
func (s *Server) handleCreateExport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Exports == nil {
		s.writeErrorMessage(w, r, http.StatusServiceUnavailable, "exports are disabled")
		return
	}

	name, err := s.parseRange(r)
	if err != nil {
		s.writeError(w, r, err, log.OpValidate)
		return
	}

	msg := amqp.NewExportRequestMessage(string(name))
	if err := s.deps.Exports.PublishExportRequest(r.Context(), msg); err != nil {
		log.LogError(r.Context(), log.FromContext(r.Context(), s.logger), "Failed to queue export", err, log.OpPublish,
			log.NewFields().WithRequestID(msg.RequestID))
		s.writeErrorMessage(w, r, http.StatusServiceUnavailable, "export queue unavailable")
		return
	}
	atomic.AddInt64(&s.metrics.exportsQueued, 1)

	writeJSON(w, http.StatusAccepted, exportAccepted{
		RequestID: msg.RequestID,
		Range:     msg.Range,
		Status:    "queued",
	})
}
