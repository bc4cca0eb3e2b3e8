package binance

// Public market-data endpoint paths.
const (
	pathPing         = "/api/v3/ping"
	pathServerTime   = "/api/v3/time"
	pathExchangeInfo = "/api/v3/exchangeInfo"
	pathTickerPrice  = "/api/v3/ticker/price"
	pathTicker24h    = "/api/v3/ticker/24hr"
	pathKlines       = "/api/v3/klines"
	pathDepth        = "/api/v3/depth"
	pathTrades       = "/api/v3/trades"
)

// Declared request weights per the exchange's published table. Heavier
// endpoints drain the shared bucket faster per logical call.
const (
	weightPing         = 1
	weightServerTime   = 1
	weightExchangeInfo = 20
	weightTickerPrice  = 2
	weightAllPrices    = 4
	weightTicker24h    = 2
	weightKlines       = 2
	weightTrades       = 10
	weightDepthBase    = 5

	maxKlinesLimit     = 1000
	defaultKlinesLimit = 500
	defaultDepthLimit  = 100
	defaultTradesLimit = 500
)

// depthWeight scales the order-book weight with the requested depth.
func depthWeight(limit int) int {
	switch {
	case limit <= 100:
		return weightDepthBase
	case limit <= 500:
		return 25
	case limit <= 1000:
		return 50
	default:
		return 250
	}
}
