package core

import (
	"fmt"
	"strings"
)

// FetchError is returned when an upstream API call fails. StatusCode is 0
// when no HTTP response was received; Err is set with a 2xx status when the
// response could not be decoded.
type FetchError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	body := e.Body
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	return fmt.Sprintf("fetch %s: status %d: %s", e.Endpoint, e.StatusCode, body)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ConfigError reports a missing or invalid setting required to reach the
// payments API.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing configuration: %s", e.Field)
}

// LookupAttempt records the outcome of one detail lookup strategy.
type LookupAttempt struct {
	Strategy   string `json:"strategy"`
	StatusCode int    `json:"status_code"`
}

type NotFoundError struct {
	ID       string
	Attempts []LookupAttempt
}

func (e *NotFoundError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s=%d", a.Strategy, a.StatusCode))
	}
	return fmt.Sprintf("detail %q not found (%s)", e.ID, strings.Join(parts, ", "))
}
