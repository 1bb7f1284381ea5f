package http

import (
	"net/http"
	"time"

	"ferrer/internal/core"
	"ferrer/internal/log"
)

type ratesResponse struct {
	Base      string         `json:"base"`
	Source    string         `json:"source"`
	FetchedAt time.Time      `json:"fetched_at"`
	AgeSecs   int64          `json:"age_seconds"`
	Rates     core.RateTable `json:"rates"`
}

// handleRates serves GET /api/rates.
func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Rates.Get(r.Context())
	if err != nil {
		s.writeError(w, r, err, log.OpRefresh)
		return
	}

	writeJSON(w, http.StatusOK, ratesResponse{
		Base:      snap.Base,
		Source:    snap.Source,
		FetchedAt: snap.FetchedAt,
		AgeSecs:   int64(snap.Age(time.Now()).Seconds()),
		Rates:     snap.Rates,
	})
}
