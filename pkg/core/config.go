package core

import (
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Binance REST endpoints. Mainnet vs. testnet is selected by configuration,
// never by code path.
const (
	ProductionURL = "https://api.binance.com"
	TestnetURL    = "https://testnet.binance.vision"
)

// Config contains all configuration for a connector instance.
// It is read-only after construction and shared by the rate limiter,
// backoff policy, and dispatcher.
type Config struct {
	// BaseURL overrides the API endpoint. When empty, the URL is derived
	// from the Testnet flag.
	BaseURL string `json:"base_url" validate:"omitempty,url"`
	Testnet bool   `json:"testnet"`

	// Timeout is the maximum duration for a single HTTP attempt.
	Timeout time.Duration `json:"timeout" validate:"min=1ms"`

	// RequestsPerMinute is the request-weight budget; it determines both
	// the bucket capacity and the refill rate of the limiter.
	RequestsPerMinute int `json:"requests_per_minute" validate:"min=1"`

	MaxRetries     int  `json:"max_retries" validate:"min=0"`
	RetriesEnabled bool `json:"retries_enabled"`

	RetryWaitMin time.Duration `json:"retry_wait_min" validate:"min=0"`
	RetryWaitMax time.Duration `json:"retry_wait_max" validate:"min=0"`

	CircuitBreakerEnabled          bool          `json:"circuit_breaker_enabled"`
	CircuitBreakerFailThreshold    int           `json:"circuit_breaker_fail_threshold"`
	CircuitBreakerSuccessThreshold int           `json:"circuit_breaker_success_threshold"`
	CircuitBreakerCooldown         time.Duration `json:"circuit_breaker_cooldown"`
}

// DefaultConfig returns a Config with sensible defaults for the public
// market-data API: 10s timeout, 1200 weight/min (the published spot limit),
// 3 retries with a 100ms-30s backoff window, circuit breaker off.
func DefaultConfig() *Config {
	return &Config{
		Testnet:           false,
		Timeout:           10 * time.Second,
		RequestsPerMinute: 1200,
		MaxRetries:        3,
		RetriesEnabled:    true,
		RetryWaitMin:      100 * time.Millisecond,
		RetryWaitMax:      30 * time.Second,

		CircuitBreakerEnabled:          false,
		CircuitBreakerFailThreshold:    5,
		CircuitBreakerSuccessThreshold: 2,
		CircuitBreakerCooldown:         30 * time.Second,
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back to
// defaults for anything unset:
//
//	BINANCE_TESTNET             (bool, default false)
//	BINANCE_BASE_URL            (optional override)
//	BINANCE_TIMEOUT_SECONDS     (default 10)
//	BINANCE_REQUESTS_PER_MINUTE (default 1200)
//	BINANCE_MAX_RETRIES         (default 3)
func ConfigFromEnv() *Config {
	c := DefaultConfig()

	if v, ok := os.LookupEnv("BINANCE_TESTNET"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Testnet = b
		}
	}
	if v, ok := os.LookupEnv("BINANCE_BASE_URL"); ok && v != "" {
		c.BaseURL = v
	}
	if v, ok := os.LookupEnv("BINANCE_TIMEOUT_SECONDS"); ok {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Timeout = time.Duration(secs) * time.Second
		}
	}
	if v, ok := os.LookupEnv("BINANCE_REQUESTS_PER_MINUTE"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RequestsPerMinute = n
		}
	}
	if v, ok := os.LookupEnv("BINANCE_MAX_RETRIES"); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.MaxRetries = n
		}
	}

	return c
}

var validate = validator.New()

// Validate checks the configuration against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.CircuitBreakerEnabled {
		if c.CircuitBreakerFailThreshold <= 0 {
			return NewConfigError("CircuitBreakerFailThreshold must be positive when enabled")
		}
		if c.CircuitBreakerSuccessThreshold <= 0 {
			return NewConfigError("CircuitBreakerSuccessThreshold must be positive when enabled")
		}
		if c.CircuitBreakerCooldown <= 0 {
			return NewConfigError("CircuitBreakerCooldown must be positive when enabled")
		}
	}
	return nil
}

// ResolveBaseURL returns the effective REST endpoint: the explicit override
// when set, otherwise the mainnet or testnet URL per the Testnet flag.
func (c *Config) ResolveBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Testnet {
		return TestnetURL
	}
	return ProductionURL
}

// WithBaseURL sets an explicit endpoint override and returns the config for chaining.
func (c *Config) WithBaseURL(url string) *Config {
	c.BaseURL = url
	return c
}

// WithTestnet toggles the testnet endpoint and returns the config for chaining.
func (c *Config) WithTestnet(testnet bool) *Config {
	c.Testnet = testnet
	return c
}

// WithTimeout sets the per-attempt timeout and returns the config for chaining.
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithRateLimit sets the weight budget per minute and returns the config for chaining.
func (c *Config) WithRateLimit(requestsPerMinute int) *Config {
	c.RequestsPerMinute = requestsPerMinute
	return c
}

// WithRetries configures the retry loop and returns the config for chaining.
func (c *Config) WithRetries(enabled bool, maxRetries int) *Config {
	c.RetriesEnabled = enabled
	c.MaxRetries = maxRetries
	return c
}

// WithCircuitBreaker enables the circuit breaker and returns the config for chaining.
func (c *Config) WithCircuitBreaker(failThreshold, successThreshold int, cooldown time.Duration) *Config {
	c.CircuitBreakerEnabled = true
	c.CircuitBreakerFailThreshold = failThreshold
	c.CircuitBreakerSuccessThreshold = successThreshold
	c.CircuitBreakerCooldown = cooldown
	return c
}
