package core

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_Retryable(t *testing.T) {
	retryable := []ErrorType{ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeRateLimit}
	terminal := []ErrorType{ErrorTypeUnknown, ErrorTypeInvalidSymbol, ErrorTypeAPI, ErrorTypeSerialization}

	for _, et := range retryable {
		assert.True(t, et.Retryable(), et.String())
	}
	for _, et := range terminal {
		assert.False(t, et.Retryable(), et.String())
	}
}

func TestErrorType_String(t *testing.T) {
	assert.Equal(t, "NETWORK", ErrorTypeNetwork.String())
	assert.Equal(t, "TIMEOUT", ErrorTypeTimeout.String())
	assert.Equal(t, "RATE_LIMIT", ErrorTypeRateLimit.String())
	assert.Equal(t, "INVALID_SYMBOL", ErrorTypeInvalidSymbol.String())
	assert.Equal(t, "API_ERROR", ErrorTypeAPI.String())
	assert.Equal(t, "SERIALIZATION", ErrorTypeSerialization.String())
	assert.Equal(t, "UNKNOWN", ErrorTypeUnknown.String())
}

func TestError_Message(t *testing.T) {
	rl := NewRateLimitError(429, 5*time.Second)
	assert.Equal(t, "RATE_LIMIT: retry after 5s", rl.Error())

	sym := NewInvalidSymbolError("FOOBAR", 400, "-1121", "Invalid symbol.")
	assert.Equal(t, "INVALID_SYMBOL: FOOBAR", sym.Error())

	api := NewAPIError(400, "-1102", "Mandatory parameter 'symbol' was not sent.")
	assert.Contains(t, api.Error(), "API_ERROR")
	assert.Contains(t, api.Error(), "-1102")
	assert.Contains(t, api.Error(), "Mandatory parameter")

	net := NewNetworkError(errors.New("connection refused"))
	assert.Equal(t, "NETWORK: connection refused", net.Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := NewNetworkError(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))

	assert.Nil(t, errors.Unwrap(NewAPIError(400, "-1000", "unknown")))
}

func TestError_Predicates(t *testing.T) {
	assert.True(t, IsNetworkError(NewNetworkError(errors.New("refused"))))
	assert.True(t, IsTimeoutError(NewTimeoutError(time.Second, nil)))
	assert.True(t, IsRateLimitError(NewRateLimitError(429, 0)))
	assert.True(t, IsInvalidSymbolError(NewInvalidSymbolError("X", 400, "-1121", "")))
	assert.True(t, IsSerializationError(NewSerializationError(errors.New("bad json"))))

	assert.False(t, IsNetworkError(NewRateLimitError(429, 0)))
	assert.False(t, IsNetworkError(nil))
	assert.False(t, IsNetworkError(errors.New("plain")))
}

func TestError_PredicatesThroughWrapping(t *testing.T) {
	inner := NewRateLimitError(429, time.Second)
	wrapped := fmt.Errorf("fetching ticker: %w", inner)

	assert.True(t, IsRateLimitError(wrapped))
	assert.True(t, IsRetryable(wrapped))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewNetworkError(errors.New("refused"))))
	assert.True(t, IsRetryable(NewTimeoutError(time.Second, nil)))
	assert.True(t, IsRetryable(NewRateLimitError(429, 0)))

	assert.False(t, IsRetryable(NewInvalidSymbolError("X", 400, "-1121", "")))
	assert.False(t, IsRetryable(NewAPIError(500, "", "boom")))
	assert.False(t, IsRetryable(NewSerializationError(errors.New("bad json"))))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestNewTimeoutError_MessageFallsBackToDeadline(t *testing.T) {
	err := NewTimeoutError(3*time.Second, nil)
	assert.Equal(t, "TIMEOUT: request timed out after 3s", err.Error())
}

func TestError_TimestampSet(t *testing.T) {
	before := time.Now()
	err := NewAPIError(500, "", "boom")

	require.False(t, err.Timestamp.IsZero())
	assert.WithinDuration(t, before, err.Timestamp, time.Second)
}

func TestCodeFor(t *testing.T) {
	assert.Equal(t, ErrCodeRateLimit, CodeFor(ErrorTypeRateLimit))
	assert.Equal(t, ErrCodeInvalidSymbol, CodeFor(ErrorTypeInvalidSymbol))
}
