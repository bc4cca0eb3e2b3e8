// Package transport executes API calls: it acquires rate-limit capacity,
// issues the HTTP request, classifies the outcome, and retries transient
// failures with exponential backoff.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"github.com/Guivernoir/binance-connector/internal/backoff"
	"github.com/Guivernoir/binance-connector/internal/circuitbreaker"
	"github.com/Guivernoir/binance-connector/internal/ratelimit"
	"github.com/Guivernoir/binance-connector/pkg/core"
)

// Dispatcher orchestrates one call at a time per invocation:
// acquire weight from the limiter, send, classify, then return, retry, or
// fail. The limiter is the only shared mutable state; the critical section
// never spans the network call.
type Dispatcher struct {
	client  *resty.Client
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.Breaker
	policy  backoff.Policy
	config  *core.Config
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// New creates a Dispatcher over a resty client configured from cfg.
// Resty's own retry machinery stays off; retry decisions here are driven by
// the error taxonomy, not by status-code heuristics.
func New(cfg *core.Config, limiter *ratelimit.Limiter, breaker *circuitbreaker.Breaker, logger zerolog.Logger) *Dispatcher {
	client := resty.New()
	client.SetBaseURL(cfg.ResolveBaseURL())
	client.SetTimeout(cfg.Timeout)

	client.AddRequestMiddleware(func(_ *resty.Client, req *resty.Request) error {
		logger.Debug().
			Str("method", req.Method).
			Str("url", req.URL).
			Msg("http request")
		return nil
	})

	client.AddResponseMiddleware(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug().
			Str("method", resp.Request.Method).
			Str("url", resp.Request.URL).
			Int("status", resp.StatusCode()).
			Int("size", len(resp.Bytes())).
			Msg("http response")
		return nil
	})

	return &Dispatcher{
		client:  client,
		limiter: limiter,
		breaker: breaker,
		policy:  backoff.NewPolicy(cfg.RetryWaitMin, cfg.RetryWaitMax),
		config:  cfg,
		logger:  logger,
	}
}

// Execute runs the request to completion: success returns the raw response
// body, failure returns the last classified error. Retryable failures
// (NETWORK, TIMEOUT, RATE_LIMIT) are retried up to MaxRetries with
// exponential backoff, honoring the exchange's Retry-After hint when it
// exceeds the computed delay. A retried call re-acquires capacity; weight
// already debited is not refunded. Terminal failures return immediately.
func (d *Dispatcher) Execute(ctx context.Context, req *core.Request) ([]byte, error) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return nil, core.ErrClientClosed
	}
	d.mu.RUnlock()

	for attempt := 0; ; attempt++ {
		body, cerr := d.attempt(ctx, req)
		if cerr == nil {
			return body, nil
		}

		// Rate-limit errors always carry an actionable wait hint, even
		// when the exchange omitted one.
		if cerr.Type == core.ErrorTypeRateLimit && cerr.RetryAfter == 0 {
			cerr.RetryAfter = d.policy.Delay(attempt)
		}

		if !cerr.Retryable() || !d.config.RetriesEnabled || attempt >= d.config.MaxRetries {
			d.logger.Debug().
				Str("path", req.Path).
				Str("type", cerr.Type.String()).
				Int("attempt", attempt+1).
				Msg("request failed")
			return nil, cerr
		}

		delay := d.policy.Delay(attempt)
		if cerr.RetryAfter > delay {
			delay = cerr.RetryAfter
		}

		d.logger.Warn().
			Str("path", req.Path).
			Str("type", cerr.Type.String()).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("retrying request")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, core.NewTimeoutError(d.config.Timeout, ctx.Err())
		case <-timer.C:
		}
	}
}

func (d *Dispatcher) attempt(ctx context.Context, req *core.Request) ([]byte, *core.Error) {
	if err := d.limiter.Acquire(ctx, req.Weight); err != nil {
		if ctx.Err() != nil {
			return nil, core.NewTimeoutError(d.config.Timeout, err)
		}
		return nil, core.NewUnknownError(0, err.Error())
	}

	if d.breaker != nil && !d.breaker.Allow() {
		return nil, core.NewNetworkError(core.ErrCircuitOpen)
	}

	timeout := d.config.Timeout
	callCtx := ctx
	if req.Timeout > 0 {
		timeout = req.Timeout
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	r := d.client.R().SetContext(callCtx)
	for k, v := range req.Query {
		r.SetQueryParam(k, paramString(v))
	}

	var resp *resty.Response
	var err error

	switch req.Method {
	case http.MethodGet:
		resp, err = r.Get(req.Path)
	case http.MethodPost:
		resp, err = r.Post(req.Path)
	case http.MethodDelete:
		resp, err = r.Delete(req.Path)
	default:
		return nil, core.NewUnknownError(0, fmt.Sprintf("unsupported http method: %s", req.Method))
	}

	cerr := Classify(req, resp, err, timeout)

	if d.breaker != nil {
		// Terminal application errors say nothing about endpoint health.
		d.breaker.Record(cerr == nil || !cerr.Retryable())
	}

	if cerr != nil {
		return nil, cerr
	}
	return resp.Bytes(), nil
}

// Close releases the underlying HTTP client. Subsequent Execute calls
// return ErrClientClosed.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.client.Close()
}

// BaseURL returns the endpoint the dispatcher targets.
func (d *Dispatcher) BaseURL() string {
	return d.config.ResolveBaseURL()
}

func paramString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
