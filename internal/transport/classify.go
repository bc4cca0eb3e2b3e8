package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"resty.dev/v3"

	"github.com/Guivernoir/binance-connector/pkg/core"
)

// binanceAPIError is the error payload shape the exchange returns.
type binanceAPIError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

var symbolInMessage = regexp.MustCompile(`[A-Z0-9]{5,}`)

// Classify maps every possible call outcome to exactly one taxonomy error,
// or nil for a 2xx response. It is total and deterministic: transport
// failures become NETWORK or TIMEOUT, HTTP 429/418 and the exchange's
// throttle codes become RATE_LIMIT, code -1121 becomes INVALID_SYMBOL, and
// any other well-formed error payload becomes API_ERROR with the remote
// code and message verbatim.
func Classify(req *core.Request, resp *resty.Response, err error, timeout time.Duration) *core.Error {
	if err != nil {
		return classifyTransportError(err, timeout)
	}
	if resp == nil {
		return core.NewUnknownError(0, "no response received")
	}

	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		return nil
	}

	// 418 is the exchange's auto-ban escalation of 429.
	if status == http.StatusTooManyRequests || status == http.StatusTeapot {
		return core.NewRateLimitError(status, parseRetryAfter(resp.Header().Get("Retry-After")))
	}

	body := resp.Bytes()
	var apiErr binanceAPIError
	if decodeErr := sonic.Unmarshal(body, &apiErr); decodeErr == nil && apiErr.Code != 0 {
		switch apiErr.Code {
		case core.BinanceCodeInvalidSymbol:
			symbol := req.QueryString("symbol")
			if symbol == "" {
				symbol = symbolInMessage.FindString(apiErr.Msg)
			}
			return core.NewInvalidSymbolError(symbol, status, strconv.Itoa(apiErr.Code), apiErr.Msg)
		case core.BinanceCodeTooManyRequests, core.BinanceCodeTooManyOrders:
			return core.NewRateLimitError(status, parseRetryAfter(resp.Header().Get("Retry-After")))
		default:
			return core.NewAPIError(status, strconv.Itoa(apiErr.Code), apiErr.Msg)
		}
	}

	if status >= 400 {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = resp.Status()
		}
		return core.NewAPIError(status, "", msg)
	}

	return core.NewUnknownError(status, resp.Status())
}

func classifyTransportError(err error, timeout time.Duration) *core.Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return core.NewTimeoutError(timeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return core.NewTimeoutError(timeout, err)
	}
	return core.NewNetworkError(err)
}

// parseRetryAfter reads a Retry-After header in either delay-seconds or
// HTTP-date form. An absent or unparseable value yields zero; the
// dispatcher substitutes the backoff policy's delay in that case.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		d := time.Duration(secs) * time.Second
		if d > time.Hour {
			d = time.Hour
		}
		return d
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			if d > time.Hour {
				d = time.Hour
			}
			return d
		}
	}
	return 0
}
