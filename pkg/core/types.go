package core

import (
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Ticker holds the latest traded price for a symbol.
type Ticker struct {
	Symbol    string      `json:"symbol"`
	Price     apd.Decimal `json:"price"`
	Timestamp time.Time   `json:"timestamp"`
}

// Ticker24h holds rolling 24-hour statistics for a symbol.
type Ticker24h struct {
	Symbol             string      `json:"symbol"`
	PriceChange        apd.Decimal `json:"price_change"`
	PriceChangePercent apd.Decimal `json:"price_change_percent"`
	WeightedAvgPrice   apd.Decimal `json:"weighted_avg_price"`
	PrevClosePrice     apd.Decimal `json:"prev_close_price"`
	LastPrice          apd.Decimal `json:"last_price"`
	BidPrice           apd.Decimal `json:"bid_price"`
	AskPrice           apd.Decimal `json:"ask_price"`
	OpenPrice          apd.Decimal `json:"open_price"`
	HighPrice          apd.Decimal `json:"high_price"`
	LowPrice           apd.Decimal `json:"low_price"`
	Volume             apd.Decimal `json:"volume"`
	QuoteVolume        apd.Decimal `json:"quote_volume"`
	OpenTime           time.Time   `json:"open_time"`
	CloseTime          time.Time   `json:"close_time"`
	FirstID            int64       `json:"first_id"`
	LastID             int64       `json:"last_id"`
	Count              int64       `json:"count"`
}

// Spread returns the bid/ask spread.
func (t *Ticker24h) Spread() (apd.Decimal, error) {
	var spread apd.Decimal
	_, err := apd.BaseContext.Sub(&spread, &t.AskPrice, &t.BidPrice)
	return spread, err
}

// Mid returns the bid/ask midpoint.
func (t *Ticker24h) Mid() (apd.Decimal, error) {
	var sum, mid apd.Decimal
	if _, err := apd.BaseContext.Add(&sum, &t.BidPrice, &t.AskPrice); err != nil {
		return mid, err
	}
	_, err := apd.BaseContext.Quo(&mid, &sum, apd.New(2, 0))
	return mid, err
}

// Kline is one OHLCV candlestick.
type Kline struct {
	Symbol        string      `json:"symbol"`
	OpenTime      time.Time   `json:"open_time"`
	CloseTime     time.Time   `json:"close_time"`
	Open          apd.Decimal `json:"open"`
	High          apd.Decimal `json:"high"`
	Low           apd.Decimal `json:"low"`
	Close         apd.Decimal `json:"close"`
	Volume        apd.Decimal `json:"volume"`
	QuoteVolume   apd.Decimal `json:"quote_volume"`
	Trades        int64       `json:"trades"`
	TakerBuyBase  apd.Decimal `json:"taker_buy_base"`
	TakerBuyQuote apd.Decimal `json:"taker_buy_quote"`
	// IsClosed reports whether the candle is finalized. REST klines are
	// always closed except possibly the most recent one.
	IsClosed bool `json:"is_closed"`
}

// PriceLevel is a single order book entry.
type PriceLevel struct {
	Price    apd.Decimal `json:"price"`
	Quantity apd.Decimal `json:"quantity"`
}

// OrderBook is a market depth snapshot.
type OrderBook struct {
	Symbol       string       `json:"symbol"`
	LastUpdateID int64        `json:"last_update_id"`
	Bids         []PriceLevel `json:"bids"`
	Asks         []PriceLevel `json:"asks"`
	Timestamp    time.Time    `json:"timestamp"`
}

// Trade is a single public trade.
type Trade struct {
	ID            int64       `json:"id"`
	Symbol        string      `json:"symbol"`
	Price         apd.Decimal `json:"price"`
	Quantity      apd.Decimal `json:"quantity"`
	QuoteQuantity apd.Decimal `json:"quote_quantity"`
	Time          time.Time   `json:"time"`
	IsBuyerMaker  bool        `json:"is_buyer_maker"`
}

// SymbolInfo describes one trading pair from exchange metadata.
type SymbolInfo struct {
	Symbol              string   `json:"symbol"`
	Status              string   `json:"status"`
	BaseAsset           string   `json:"baseAsset"`
	QuoteAsset          string   `json:"quoteAsset"`
	BaseAssetPrecision  int      `json:"baseAssetPrecision"`
	QuoteAssetPrecision int      `json:"quoteAssetPrecision"`
	OrderTypes          []string `json:"orderTypes"`
}

// ExchangeInfo is the exchange metadata response.
type ExchangeInfo struct {
	Timezone   string       `json:"timezone"`
	ServerTime int64        `json:"serverTime"`
	Symbols    []SymbolInfo `json:"symbols"`
}
