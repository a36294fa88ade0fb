package pagination

import (
	"net/http"
	"strconv"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Params carries limit/offset extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// FromRequest parses pagination query parameters with sane bounds.
func FromRequest(r *http.Request) Params {
	params := Params{Limit: defaultLimit}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			params.Limit = v
		}
	}
	if params.Limit > maxLimit {
		params.Limit = maxLimit
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			params.Offset = v
		}
	}

	return params
}
