package core

// Binance numeric error codes the classifier recognizes. The exchange's
// documented error-code list is the authoritative classification table;
// status codes alone are not enough to distinguish an invalid symbol from
// a generic rejection.
const (
	// BinanceCodeTooManyRequests is returned when request weight is exhausted.
	BinanceCodeTooManyRequests = -1003
	// BinanceCodeTooManyOrders is returned when the order rate limit trips.
	// Listed for completeness; market-data calls never see it.
	BinanceCodeTooManyOrders = -1015
	// BinanceCodeInvalidSymbol is returned for unrecognized trading pairs.
	BinanceCodeInvalidSymbol = -1121
)

// ErrorCode is a stable, machine-readable identifier for an error condition.
type ErrorCode string

// Error code constants mirror the taxonomy for logging and callers that
// match on strings rather than types.
const (
	ErrCodeNetwork       ErrorCode = "NETWORK_ERROR"
	ErrCodeTimeout       ErrorCode = "TIMEOUT"
	ErrCodeRateLimit     ErrorCode = "RATE_LIMIT"
	ErrCodeInvalidSymbol ErrorCode = "INVALID_SYMBOL"
	ErrCodeAPI           ErrorCode = "API_ERROR"
	ErrCodeSerialization ErrorCode = "SERIALIZATION"
	ErrCodeUnknown       ErrorCode = "UNKNOWN"
)

// CodeFor maps an error type to its string code.
func CodeFor(t ErrorType) ErrorCode {
	switch t {
	case ErrorTypeNetwork:
		return ErrCodeNetwork
	case ErrorTypeTimeout:
		return ErrCodeTimeout
	case ErrorTypeRateLimit:
		return ErrCodeRateLimit
	case ErrorTypeInvalidSymbol:
		return ErrCodeInvalidSymbol
	case ErrorTypeAPI:
		return ErrCodeAPI
	case ErrorTypeSerialization:
		return ErrCodeSerialization
	default:
		return ErrCodeUnknown
	}
}
