package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Request wraps *http.Request with the lookups the inspection API needs.
type Request struct {
	raw *http.Request
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// ── Input helpers ────────────────────────────────────────────────────────────

// Query returns a query-string value, or the first fallback when it is empty.
func (req *Request) Query(key string, fallback ...string) string {
	if v := req.raw.URL.Query().Get(key); v != "" || len(fallback) == 0 {
		return v
	}
	return fallback[0]
}

// QueryBool parses a query-string flag. Missing or invalid values give
// fallback.
func (req *Request) QueryBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(req.raw.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}

// RouteParam returns a chi URL parameter such as {name}.
func (req *Request) RouteParam(key string) string {
	return chi.URLParam(req.raw, key)
}
