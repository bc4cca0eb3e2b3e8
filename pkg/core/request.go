package core

import (
	"maps"
	"time"
)

// Params holds query parameters for a request.
type Params map[string]any

// Request is an immutable description of one API call. It is created per
// call by the facade and owned by the dispatcher for the duration of
// execution; it is never retained afterward.
type Request struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Query  Params `json:"query,omitempty"`

	// Weight is the cost debited from the rate-limit budget for this call,
	// mirroring the exchange's published weight system. Defaults to 1.
	Weight int `json:"weight"`

	// Timeout overrides the client-wide per-attempt timeout when positive.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// NewRequest creates a request with the given method and path and a
// default weight of 1.
func NewRequest(method, path string) *Request {
	return &Request{
		Method: method,
		Path:   path,
		Query:  make(Params),
		Weight: 1,
	}
}

// SetQuery sets a single query parameter and returns the request for chaining.
func (r *Request) SetQuery(key string, value any) *Request {
	if r.Query == nil {
		r.Query = make(Params)
	}
	r.Query[key] = value
	return r
}

// SetQueryParams merges the given parameters and returns the request for chaining.
func (r *Request) SetQueryParams(params Params) *Request {
	if r.Query == nil {
		r.Query = make(Params)
	}
	maps.Copy(r.Query, params)
	return r
}

// SetWeight declares the rate-limit cost and returns the request for chaining.
func (r *Request) SetWeight(weight int) *Request {
	r.Weight = weight
	return r
}

// SetTimeout sets a per-call timeout override and returns the request for chaining.
func (r *Request) SetTimeout(timeout time.Duration) *Request {
	r.Timeout = timeout
	return r
}

// QueryString returns the string value of a query parameter, or "" when
// absent or not a string.
func (r *Request) QueryString(key string) string {
	if v, ok := r.Query[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
