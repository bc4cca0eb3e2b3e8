package binance

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"github.com/Guivernoir/binance-connector/internal/circuitbreaker"
	"github.com/Guivernoir/binance-connector/internal/ratelimit"
	"github.com/Guivernoir/binance-connector/internal/transport"
	"github.com/Guivernoir/binance-connector/pkg/core"
)

// Client is the facade over the public market-data API. It builds a request
// descriptor per operation, delegates execution to the dispatcher, and
// decodes the raw body into canonical types. One shared token bucket gates
// all calls from a single Client.
type Client struct {
	config     *core.Config
	limiter    *ratelimit.Limiter
	dispatcher *transport.Dispatcher
	logger     zerolog.Logger
	normalizer normalizer
}

// Option is a functional option for configuring the Client.
type Option func(*Options)

// Options holds optional Client dependencies.
type Options struct {
	Logger zerolog.Logger
}

// WithLogger returns an option that sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// New creates a Client from the given configuration.
func New(config *core.Config, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	options := &Options{
		Logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(options)
	}

	limiter := ratelimit.New(config.RequestsPerMinute, time.Minute)

	var breaker *circuitbreaker.Breaker
	if config.CircuitBreakerEnabled {
		breaker = circuitbreaker.New(circuitbreaker.Config{
			FailThreshold:    config.CircuitBreakerFailThreshold,
			SuccessThreshold: config.CircuitBreakerSuccessThreshold,
			Cooldown:         config.CircuitBreakerCooldown,
		})
	}

	return &Client{
		config:     config,
		limiter:    limiter,
		dispatcher: transport.New(config, limiter, breaker, options.Logger),
		logger:     options.Logger,
	}, nil
}

// Close releases the client's HTTP resources.
func (c *Client) Close() error {
	return c.dispatcher.Close()
}

// BaseURL returns the REST endpoint the client targets.
func (c *Client) BaseURL() string {
	return c.dispatcher.BaseURL()
}

// RateLimit returns a snapshot of the shared bucket's admission statistics.
func (c *Client) RateLimit() ratelimit.MetricsSnapshot {
	return c.limiter.Metrics()
}

// Ping checks connectivity to the REST endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req := core.NewRequest(http.MethodGet, pathPing).SetWeight(weightPing)
	_, err := c.dispatcher.Execute(ctx, req)
	return err
}

// GetServerTime returns the exchange's clock.
func (c *Client) GetServerTime(ctx context.Context) (time.Time, error) {
	req := core.NewRequest(http.MethodGet, pathServerTime).SetWeight(weightServerTime)

	body, err := c.dispatcher.Execute(ctx, req)
	if err != nil {
		return time.Time{}, err
	}

	var data binanceServerTime
	if err := sonic.Unmarshal(body, &data); err != nil {
		return time.Time{}, core.NewSerializationError(err)
	}
	return time.UnixMilli(data.ServerTime), nil
}

// GetExchangeInfo returns metadata for all trading pairs.
func (c *Client) GetExchangeInfo(ctx context.Context) (*core.ExchangeInfo, error) {
	req := core.NewRequest(http.MethodGet, pathExchangeInfo).SetWeight(weightExchangeInfo)

	body, err := c.dispatcher.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	var info core.ExchangeInfo
	if err := sonic.Unmarshal(body, &info); err != nil {
		return nil, core.NewSerializationError(err)
	}
	return &info, nil
}

// GetTickerPrice returns the latest price for a symbol.
func (c *Client) GetTickerPrice(ctx context.Context, symbol string) (*core.Ticker, error) {
	req := core.NewRequest(http.MethodGet, pathTickerPrice).
		SetQuery("symbol", symbol).
		SetWeight(weightTickerPrice)

	body, err := c.dispatcher.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	var data binanceTickerPrice
	if err := sonic.Unmarshal(body, &data); err != nil {
		return nil, core.NewSerializationError(err)
	}
	return c.normalizer.Ticker(&data), nil
}

// GetAllTickerPrices returns the latest price for every symbol.
func (c *Client) GetAllTickerPrices(ctx context.Context) ([]core.Ticker, error) {
	req := core.NewRequest(http.MethodGet, pathTickerPrice).SetWeight(weightAllPrices)

	body, err := c.dispatcher.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	var data []binanceTickerPrice
	if err := sonic.Unmarshal(body, &data); err != nil {
		return nil, core.NewSerializationError(err)
	}

	tickers := make([]core.Ticker, 0, len(data))
	for i := range data {
		tickers = append(tickers, *c.normalizer.Ticker(&data[i]))
	}
	return tickers, nil
}

// GetTicker24h returns rolling 24-hour statistics for a symbol.
func (c *Client) GetTicker24h(ctx context.Context, symbol string) (*core.Ticker24h, error) {
	req := core.NewRequest(http.MethodGet, pathTicker24h).
		SetQuery("symbol", symbol).
		SetWeight(weightTicker24h)

	body, err := c.dispatcher.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	var data binanceTicker24h
	if err := sonic.Unmarshal(body, &data); err != nil {
		return nil, core.NewSerializationError(err)
	}
	return c.normalizer.Ticker24h(&data), nil
}

// GetKlines returns up to limit recent candlesticks for a symbol. The
// exchange caps limit at 1000; zero picks the exchange default of 500.
func (c *Client) GetKlines(ctx context.Context, symbol string, interval core.Interval, limit int) ([]core.Kline, error) {
	if !interval.Valid() {
		return nil, core.NewConfigError(fmt.Sprintf("invalid interval: %s", interval))
	}
	if limit > maxKlinesLimit {
		return nil, core.NewConfigError(fmt.Sprintf("limit %d exceeds maximum of %d", limit, maxKlinesLimit))
	}
	if limit <= 0 {
		limit = defaultKlinesLimit
	}

	req := core.NewRequest(http.MethodGet, pathKlines).
		SetQuery("symbol", symbol).
		SetQuery("interval", interval.String()).
		SetQuery("limit", limit).
		SetWeight(weightKlines)

	return c.fetchKlines(ctx, req, symbol)
}

// GetKlinesRange returns candlesticks between two millisecond timestamps.
func (c *Client) GetKlinesRange(ctx context.Context, symbol string, interval core.Interval, startTime, endTime int64) ([]core.Kline, error) {
	if !interval.Valid() {
		return nil, core.NewConfigError(fmt.Sprintf("invalid interval: %s", interval))
	}
	if startTime > endTime {
		return nil, core.NewConfigError(fmt.Sprintf("invalid date range: start=%d, end=%d", startTime, endTime))
	}

	req := core.NewRequest(http.MethodGet, pathKlines).
		SetQuery("symbol", symbol).
		SetQuery("interval", interval.String()).
		SetQuery("startTime", startTime).
		SetQuery("endTime", endTime).
		SetWeight(weightKlines)

	return c.fetchKlines(ctx, req, symbol)
}

func (c *Client) fetchKlines(ctx context.Context, req *core.Request, symbol string) ([]core.Kline, error) {
	body, err := c.dispatcher.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	var data []binanceKline
	if err := sonic.Unmarshal(body, &data); err != nil {
		return nil, core.NewSerializationError(err)
	}

	klines, err := c.normalizer.Klines(data, symbol)
	if err != nil {
		return nil, core.NewSerializationError(err)
	}
	return klines, nil
}

// GetDepth returns an order book snapshot. Valid limits are the exchange's
// published tiers (5 to 5000); zero picks 100. Deeper books declare more
// weight against the shared bucket.
func (c *Client) GetDepth(ctx context.Context, symbol string, limit int) (*core.OrderBook, error) {
	if limit <= 0 {
		limit = defaultDepthLimit
	}

	req := core.NewRequest(http.MethodGet, pathDepth).
		SetQuery("symbol", symbol).
		SetQuery("limit", limit).
		SetWeight(depthWeight(limit))

	body, err := c.dispatcher.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	var data binanceDepth
	if err := sonic.Unmarshal(body, &data); err != nil {
		return nil, core.NewSerializationError(err)
	}

	book, err := c.normalizer.OrderBook(&data, symbol)
	if err != nil {
		return nil, core.NewSerializationError(err)
	}
	return book, nil
}

// GetRecentTrades returns up to limit recent public trades for a symbol.
func (c *Client) GetRecentTrades(ctx context.Context, symbol string, limit int) ([]core.Trade, error) {
	if limit <= 0 {
		limit = defaultTradesLimit
	}

	req := core.NewRequest(http.MethodGet, pathTrades).
		SetQuery("symbol", symbol).
		SetQuery("limit", limit).
		SetWeight(weightTrades)

	body, err := c.dispatcher.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	var data []binanceTrade
	if err := sonic.Unmarshal(body, &data); err != nil {
		return nil, core.NewSerializationError(err)
	}
	return c.normalizer.Trades(data, symbol), nil
}
