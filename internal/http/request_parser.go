package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"ferrer/internal/core"
)

// rangeQuery is the query-string contract shared by the earnings routes.
type rangeQuery struct {
	Range string `validate:"omitempty,oneof=30d 90d ytd 1y"`
}

// parseRange reads ?range=, defaulting to 30d. Invalid values wrap
// core.ErrInvalidRange.
func (s *Server) parseRange(r *http.Request) (core.RangeName, error) {
	q := rangeQuery{Range: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("range")))}
	if err := s.validate.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return "", fmt.Errorf("%w %q: must be one of %s", core.ErrInvalidRange, q.Range, verrs[0].Param())
		}
		return "", fmt.Errorf("%w: %v", core.ErrInvalidRange, err)
	}
	return core.ParseRangeName(q.Range)
}
