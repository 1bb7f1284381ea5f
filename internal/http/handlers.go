package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.uptime).String(),
	})
}

// handleReady runs every registered dependency probe.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	names := make([]string, 0, len(s.deps.ReadyChecks))
	for name := range s.deps.ReadyChecks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.deps.ReadyChecks[name](ctx); err != nil {
			checks[name] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	if s.deps.Exports == nil {
		checks["exports"] = "disabled"
	}
	if s.reports != nil {
		checks["report_cache"] = s.reports.Stats()
	}
	checks["rate_limiter"] = s.limiter.GetMetrics()

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics exposes counters in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.tracer.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP earnings_reports_built_total Reports computed from upstream data\n")
	fmt.Fprintf(w, "# TYPE earnings_reports_built_total counter\n")
	fmt.Fprintf(w, "earnings_reports_built_total %d\n\n", atomic.LoadInt64(&s.metrics.reportsBuilt))

	fmt.Fprintf(w, "# HELP earnings_exports_queued_total Export requests published\n")
	fmt.Fprintf(w, "# TYPE earnings_exports_queued_total counter\n")
	fmt.Fprintf(w, "earnings_exports_queued_total %d\n\n", atomic.LoadInt64(&s.metrics.exportsQueued))

	if s.reports != nil {
		stats := s.reports.Stats()
		fmt.Fprintf(w, "# HELP report_cache_hits_total Report cache hits\n")
		fmt.Fprintf(w, "# TYPE report_cache_hits_total counter\n")
		fmt.Fprintf(w, "report_cache_hits_total %d\n\n", stats.Hits)

		fmt.Fprintf(w, "# HELP report_cache_misses_total Report cache misses\n")
		fmt.Fprintf(w, "# TYPE report_cache_misses_total counter\n")
		fmt.Fprintf(w, "report_cache_misses_total %d\n\n", stats.Misses)

		fmt.Fprintf(w, "# HELP report_cache_entries Current report cache entries\n")
		fmt.Fprintf(w, "# TYPE report_cache_entries gauge\n")
		fmt.Fprintf(w, "report_cache_entries %d\n\n", stats.Size)
	}

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.metrics.uptime).Seconds())
}
