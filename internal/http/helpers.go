package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ferrer/internal/core"
	"ferrer/internal/log"
	"ferrer/internal/middleware/trace"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		notFound *core.NotFoundError
		fetchErr *core.FetchError
		cfgErr   *core.ConfigError
	)
	switch {
	case errors.Is(err, core.ErrInvalidRange), errors.Is(err, core.ErrEmptyID):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides upstream bodies and internal details from callers.
func publicMessage(err error, status int) string {
	var fetchErr *core.FetchError
	switch {
	case status == http.StatusBadRequest, status == http.StatusNotFound:
		return err.Error()
	case status == http.StatusGatewayTimeout:
		return "upstream request timed out"
	case errors.As(err, &fetchErr):
		if fetchErr.StatusCode == 0 {
			return fmt.Sprintf("upstream %s unreachable", fetchErr.Endpoint)
		}
		if fetchErr.Err != nil {
			return fmt.Sprintf("upstream %s returned an unreadable response", fetchErr.Endpoint)
		}
		return fmt.Sprintf("upstream %s returned status %d", fetchErr.Endpoint, fetchErr.StatusCode)
	default:
		return "internal error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	status := statusFor(err)
	fields := log.NewFields().
		WithComponent(log.ComponentHTTP).
		WithRequestID(trace.GetRequestID(r.Context()))
	fields[log.FieldPath] = r.URL.Path
	fields[log.FieldStatusCode] = status

	logger := log.FromContext(r.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		log.LogError(r.Context(), logger, "Request failed", err, op, fields)
	} else {
		logger.WarnContext(r.Context(), "Request rejected", fields.WithError(err).WithOperation(op).ToSlice()...)
	}

	s.writeErrorMessage(w, r, status, publicMessage(err, status))
}

func (s *Server) writeErrorMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: trace.GetRequestID(r.Context())})
}
