package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"ferrer/internal/log"
)

// handleOrderDetail serves GET /api/orders/{id}.
func (s *Server) handleOrderDetail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	detail, err := s.deps.Orders.Resolve(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, log.OpResolve)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}
