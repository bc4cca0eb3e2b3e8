package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of a connector error. Every transport
// failure, HTTP status, and API error payload maps to exactly one type.
type ErrorType int

// Error type constants categorize failures for retry decisions.
const (
	// ErrorTypeUnknown indicates an unclassified failure.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeNetwork indicates a connection, DNS, or TLS failure.
	ErrorTypeNetwork
	// ErrorTypeTimeout indicates the request exceeded its deadline.
	ErrorTypeTimeout
	// ErrorTypeRateLimit indicates the exchange throttled the request.
	ErrorTypeRateLimit
	// ErrorTypeInvalidSymbol indicates the trading pair is not recognized.
	ErrorTypeInvalidSymbol
	// ErrorTypeAPI indicates an exchange-reported application error.
	ErrorTypeAPI
	// ErrorTypeSerialization indicates the response body failed to decode.
	ErrorTypeSerialization
)

// String returns the string representation of the error type.
func (t ErrorType) String() string {
	return [...]string{
		"UNKNOWN",
		"NETWORK",
		"TIMEOUT",
		"RATE_LIMIT",
		"INVALID_SYMBOL",
		"API_ERROR",
		"SERIALIZATION",
	}[t]
}

// Retryable reports whether a failure of this type can succeed on an
// identical retry. Network, timeout, and rate-limit failures are transient;
// everything else is terminal.
func (t ErrorType) Retryable() bool {
	switch t {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeRateLimit:
		return true
	default:
		return false
	}
}

// Sentinel errors for client state conditions.
var (
	// ErrClientClosed is returned when attempting to use a closed client.
	ErrClientClosed = errors.New("client is closed")
	// ErrCircuitOpen is returned when the circuit breaker rejects a call.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// Error is the single failure value surfaced by the connector. Callers never
// see raw transport errors or HTTP status codes, only this taxonomy.
// It is immutable once returned.
type Error struct {
	// Type categorizes the failure for retry decisions.
	Type ErrorType `json:"type"`
	// StatusCode is the HTTP status of the response, when one was received.
	StatusCode int `json:"status_code,omitempty"`
	// Code is the exchange-specific error code, verbatim from the payload.
	Code string `json:"code,omitempty"`
	// Message is the human-readable description.
	Message string `json:"message"`
	// Symbol is the offending trading pair for INVALID_SYMBOL errors.
	Symbol string `json:"symbol,omitempty"`
	// RetryAfter is the wait hint for RATE_LIMIT errors. It is always
	// populated before the error reaches a caller, from the Retry-After
	// header when the exchange sent one or from the backoff policy
	// otherwise.
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	// Timestamp is when the failure was classified.
	Timestamp time.Time `json:"timestamp"`

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Type {
	case ErrorTypeRateLimit:
		return fmt.Sprintf("%s: retry after %s", e.Type, e.RetryAfter)
	case ErrorTypeInvalidSymbol:
		return fmt.Sprintf("%s: %s", e.Type, e.Symbol)
	default:
		if e.Code != "" {
			return fmt.Sprintf("%s (%d/%s): %s", e.Type, e.StatusCode, e.Code, e.Message)
		}
		if e.StatusCode != 0 {
			return fmt.Sprintf("%s (%d): %s", e.Type, e.StatusCode, e.Message)
		}
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
}

// Unwrap returns the underlying transport or decode error, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Retryable reports whether the dispatcher may retry the request that
// produced this error.
func (e *Error) Retryable() bool {
	return e.Type.Retryable()
}

// NewNetworkError classifies a connection-level failure.
func NewNetworkError(cause error) *Error {
	return &Error{
		Type:      ErrorTypeNetwork,
		Message:   cause.Error(),
		Timestamp: time.Now(),
		cause:     cause,
	}
}

// NewTimeoutError classifies an exceeded deadline.
func NewTimeoutError(timeout time.Duration, cause error) *Error {
	e := &Error{
		Type:      ErrorTypeTimeout,
		Message:   fmt.Sprintf("request timed out after %s", timeout),
		Timestamp: time.Now(),
		cause:     cause,
	}
	if cause != nil {
		e.Message = cause.Error()
	}
	return e
}

// NewRateLimitError classifies an exchange throttle response. retryAfter may
// be zero when the exchange omitted a hint; the dispatcher fills it from the
// backoff policy before the error escapes.
func NewRateLimitError(statusCode int, retryAfter time.Duration) *Error {
	return &Error{
		Type:       ErrorTypeRateLimit,
		StatusCode: statusCode,
		Message:    "rate limit exceeded",
		RetryAfter: retryAfter,
		Timestamp:  time.Now(),
	}
}

// NewInvalidSymbolError classifies a rejection of an unrecognized trading pair.
func NewInvalidSymbolError(symbol string, statusCode int, code, message string) *Error {
	return &Error{
		Type:       ErrorTypeInvalidSymbol,
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Symbol:     symbol,
		Timestamp:  time.Now(),
	}
}

// NewAPIError classifies an exchange-reported application error, preserving
// the remote code and message verbatim.
func NewAPIError(statusCode int, code, message string) *Error {
	return &Error{
		Type:       ErrorTypeAPI,
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Timestamp:  time.Now(),
	}
}

// NewSerializationError classifies a response body that failed to decode
// into the expected shape.
func NewSerializationError(cause error) *Error {
	return &Error{
		Type:      ErrorTypeSerialization,
		Message:   cause.Error(),
		Timestamp: time.Now(),
		cause:     cause,
	}
}

// NewUnknownError classifies anything the other rules did not cover.
func NewUnknownError(statusCode int, message string) *Error {
	return &Error{
		Type:       ErrorTypeUnknown,
		StatusCode: statusCode,
		Message:    message,
		Timestamp:  time.Now(),
	}
}

// NewConfigError reports an invalid configuration value. Configuration
// errors are construction-time failures, not part of the retry taxonomy.
func NewConfigError(message string) error {
	return fmt.Errorf("invalid config: %s", message)
}

// IsNetworkError returns true if the error is a network connectivity failure.
func IsNetworkError(err error) bool {
	return isType(err, ErrorTypeNetwork)
}

// IsTimeoutError returns true if the error is an exceeded deadline.
func IsTimeoutError(err error) bool {
	return isType(err, ErrorTypeTimeout)
}

// IsRateLimitError returns true if the exchange throttled the request.
func IsRateLimitError(err error) bool {
	return isType(err, ErrorTypeRateLimit)
}

// IsInvalidSymbolError returns true if the trading pair was not recognized.
func IsInvalidSymbolError(err error) bool {
	return isType(err, ErrorTypeInvalidSymbol)
}

// IsSerializationError returns true if a response body failed to decode.
func IsSerializationError(err error) bool {
	return isType(err, ErrorTypeSerialization)
}

// IsRetryable returns true if the dispatcher would retry the failure.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}

func isType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}
