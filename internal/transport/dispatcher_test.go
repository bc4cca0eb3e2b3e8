package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guivernoir/binance-connector/internal/circuitbreaker"
	"github.com/Guivernoir/binance-connector/internal/ratelimit"
	"github.com/Guivernoir/binance-connector/pkg/core"
)

func fastConfig(url string) *core.Config {
	cfg := core.DefaultConfig().WithBaseURL(url)
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 10 * time.Millisecond
	return cfg
}

func newTestDispatcher(t *testing.T, cfg *core.Config, breaker *circuitbreaker.Breaker) *Dispatcher {
	t.Helper()

	limiter := ratelimit.New(cfg.RequestsPerMinute, time.Minute)
	d := New(cfg, limiter, breaker, zerolog.Nop())
	t.Cleanup(func() { d.Close() })
	return d
}

// dropConnection kills the TCP connection before writing a response, which
// the client observes as a transport-level failure.
func dropConnection(attempts *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		hj, ok := w.(http.Hijacker)
		if !ok {
			panic("response writer does not support hijacking")
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			panic(err)
		}
		conn.Close()
	}
}

func TestDispatcher_Execute_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"serverTime":1700000000000}`))
	}))
	defer server.Close()

	d := newTestDispatcher(t, fastConfig(server.URL), nil)

	body, err := d.Execute(context.Background(), core.NewRequest(http.MethodGet, "/api/v3/time"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"serverTime":1700000000000}`, string(body))
}

func TestDispatcher_Execute_ForwardsQueryParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "500", r.URL.Query().Get("limit"))
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	d := newTestDispatcher(t, fastConfig(server.URL), nil)

	req := core.NewRequest(http.MethodGet, "/api/v3/trades").
		SetQuery("symbol", "BTCUSDT").
		SetQuery("limit", 500)

	_, err := d.Execute(context.Background(), req)
	require.NoError(t, err)
}

func TestDispatcher_Execute_NetworkFailure_ExhaustsRetries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(dropConnection(&attempts))
	defer server.Close()

	cfg := fastConfig(server.URL)
	cfg.MaxRetries = 3

	d := newTestDispatcher(t, cfg, nil)

	_, err := d.Execute(context.Background(), core.NewRequest(http.MethodGet, "/api/v3/ping"))
	require.Error(t, err)
	assert.True(t, core.IsNetworkError(err))
	assert.Equal(t, int32(4), attempts.Load(), "initial attempt plus three retries")
}

func TestDispatcher_Execute_TransientFailure_ThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	drop := dropConnection(&attempts)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Load() < 2 {
			drop(w, r)
			return
		}
		attempts.Add(1)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	d := newTestDispatcher(t, fastConfig(server.URL), nil)

	body, err := d.Execute(context.Background(), core.NewRequest(http.MethodGet, "/api/v3/ping"))
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(body))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestDispatcher_Execute_InvalidSymbol_NoRetry(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer server.Close()

	d := newTestDispatcher(t, fastConfig(server.URL), nil)

	req := core.NewRequest(http.MethodGet, "/api/v3/ticker/price").SetQuery("symbol", "FOOBAR")
	_, err := d.Execute(context.Background(), req)

	require.Error(t, err)
	assert.True(t, core.IsInvalidSymbolError(err))
	assert.Equal(t, int32(1), attempts.Load(), "terminal errors must not be retried")
}

func TestDispatcher_Execute_RateLimited_HonorsRetryAfter(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"50000.00"}`))
	}))
	defer server.Close()

	d := newTestDispatcher(t, fastConfig(server.URL), nil)

	start := time.Now()
	body, err := d.Execute(context.Background(), core.NewRequest(http.MethodGet, "/api/v3/ticker/price"))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Contains(t, string(body), "BTCUSDT")
	assert.Equal(t, int32(2), attempts.Load())
	assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond, "server wait hint must be honored")
}

func TestDispatcher_Execute_RateLimited_FallbackRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := fastConfig(server.URL)
	cfg.MaxRetries = 0

	d := newTestDispatcher(t, cfg, nil)

	_, err := d.Execute(context.Background(), core.NewRequest(http.MethodGet, "/api/v3/ping"))
	require.Error(t, err)

	var cerr *core.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, core.ErrorTypeRateLimit, cerr.Type)
	assert.Greater(t, cerr.RetryAfter, time.Duration(0), "callers always get a wait hint")
}

func TestDispatcher_Execute_RetriesDisabled_SingleAttempt(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(dropConnection(&attempts))
	defer server.Close()

	cfg := fastConfig(server.URL).WithRetries(false, 3)
	d := newTestDispatcher(t, cfg, nil)

	_, err := d.Execute(context.Background(), core.NewRequest(http.MethodGet, "/api/v3/ping"))
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestDispatcher_Execute_PerRequestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := fastConfig(server.URL).WithRetries(false, 0)
	d := newTestDispatcher(t, cfg, nil)

	req := core.NewRequest(http.MethodGet, "/api/v3/time").SetTimeout(20 * time.Millisecond)

	start := time.Now()
	_, err := d.Execute(context.Background(), req)

	require.Error(t, err)
	assert.True(t, core.IsTimeoutError(err))
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestDispatcher_Execute_ContextCanceledDuringBackoff(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(dropConnection(&attempts))
	defer server.Close()

	cfg := fastConfig(server.URL)
	cfg.RetryWaitMin = 500 * time.Millisecond
	cfg.RetryWaitMax = time.Second

	d := newTestDispatcher(t, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := d.Execute(ctx, core.NewRequest(http.MethodGet, "/api/v3/ping"))

	require.Error(t, err)
	assert.True(t, core.IsTimeoutError(err))
	assert.Less(t, time.Since(start), 400*time.Millisecond, "cancellation must cut the backoff wait short")
}

func TestDispatcher_Execute_AfterClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	d := newTestDispatcher(t, fastConfig(server.URL), nil)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close(), "close is idempotent")

	_, err := d.Execute(context.Background(), core.NewRequest(http.MethodGet, "/api/v3/ping"))
	assert.ErrorIs(t, err, core.ErrClientClosed)
}

func TestDispatcher_Execute_BreakerOpensAfterFailures(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(dropConnection(&attempts))
	defer server.Close()

	cfg := fastConfig(server.URL).WithRetries(false, 0)
	breaker := circuitbreaker.New(circuitbreaker.Config{
		FailThreshold:    1,
		SuccessThreshold: 1,
		Cooldown:         time.Minute,
	})

	d := newTestDispatcher(t, cfg, breaker)

	_, err := d.Execute(context.Background(), core.NewRequest(http.MethodGet, "/api/v3/ping"))
	require.Error(t, err)
	require.Equal(t, circuitbreaker.StateOpen, breaker.State())

	_, err = d.Execute(context.Background(), core.NewRequest(http.MethodGet, "/api/v3/ping"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCircuitOpen)
	assert.Equal(t, int32(1), attempts.Load(), "open breaker must short-circuit before the wire")
}

func TestDispatcher_Execute_TerminalErrorLeavesBreakerClosed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer server.Close()

	cfg := fastConfig(server.URL)
	breaker := circuitbreaker.New(circuitbreaker.Config{
		FailThreshold:    1,
		SuccessThreshold: 1,
		Cooldown:         time.Minute,
	})

	d := newTestDispatcher(t, cfg, breaker)

	_, err := d.Execute(context.Background(), core.NewRequest(http.MethodGet, "/api/v3/ticker/price"))
	require.Error(t, err)
	assert.Equal(t, circuitbreaker.StateClosed, breaker.State())
}

func TestDispatcher_Execute_UnsupportedMethod(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := fastConfig(server.URL).WithRetries(false, 0)
	d := newTestDispatcher(t, cfg, nil)

	_, err := d.Execute(context.Background(), core.NewRequest(http.MethodPatch, "/api/v3/ping"))
	require.Error(t, err)

	var cerr *core.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, core.ErrorTypeUnknown, cerr.Type)
}
