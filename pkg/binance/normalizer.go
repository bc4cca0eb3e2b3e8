package binance

import (
	"fmt"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/Guivernoir/binance-connector/pkg/core"
)

// binanceTickerPrice is the raw /ticker/price payload.
type binanceTickerPrice struct {
	Symbol string      `json:"symbol"`
	Price  apd.Decimal `json:"price"`
}

// binanceTicker24h is the raw /ticker/24hr payload.
type binanceTicker24h struct {
	Symbol             string      `json:"symbol"`
	PriceChange        apd.Decimal `json:"priceChange"`
	PriceChangePercent apd.Decimal `json:"priceChangePercent"`
	WeightedAvgPrice   apd.Decimal `json:"weightedAvgPrice"`
	PrevClosePrice     apd.Decimal `json:"prevClosePrice"`
	LastPrice          apd.Decimal `json:"lastPrice"`
	BidPrice           apd.Decimal `json:"bidPrice"`
	AskPrice           apd.Decimal `json:"askPrice"`
	OpenPrice          apd.Decimal `json:"openPrice"`
	HighPrice          apd.Decimal `json:"highPrice"`
	LowPrice           apd.Decimal `json:"lowPrice"`
	Volume             apd.Decimal `json:"volume"`
	QuoteVolume        apd.Decimal `json:"quoteVolume"`
	OpenTime           int64       `json:"openTime"`
	CloseTime          int64       `json:"closeTime"`
	FirstID            int64       `json:"firstId"`
	LastID             int64       `json:"lastId"`
	Count              int64       `json:"count"`
}

// binanceTrade is the raw /trades payload element.
type binanceTrade struct {
	ID           int64       `json:"id"`
	Price        apd.Decimal `json:"price"`
	Qty          apd.Decimal `json:"qty"`
	QuoteQty     apd.Decimal `json:"quoteQty"`
	Time         int64       `json:"time"`
	IsBuyerMaker bool        `json:"isBuyerMaker"`
	IsBestMatch  bool        `json:"isBestMatch"`
}

// binanceDepth is the raw /depth payload. Levels arrive as string pairs.
type binanceDepth struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

// binanceKline is the positional kline tuple: open time, O, H, L, C, volume,
// close time, quote volume, trade count, taker buy base, taker buy quote.
type binanceKline []any

// binanceServerTime is the raw /time payload.
type binanceServerTime struct {
	ServerTime int64 `json:"serverTime"`
}

// normalizer converts raw exchange payloads to canonical core types.
type normalizer struct{}

func (n normalizer) Ticker(data *binanceTickerPrice) *core.Ticker {
	return &core.Ticker{
		Symbol:    data.Symbol,
		Price:     data.Price,
		Timestamp: time.Now(),
	}
}

func (n normalizer) Ticker24h(data *binanceTicker24h) *core.Ticker24h {
	return &core.Ticker24h{
		Symbol:             data.Symbol,
		PriceChange:        data.PriceChange,
		PriceChangePercent: data.PriceChangePercent,
		WeightedAvgPrice:   data.WeightedAvgPrice,
		PrevClosePrice:     data.PrevClosePrice,
		LastPrice:          data.LastPrice,
		BidPrice:           data.BidPrice,
		AskPrice:           data.AskPrice,
		OpenPrice:          data.OpenPrice,
		HighPrice:          data.HighPrice,
		LowPrice:           data.LowPrice,
		Volume:             data.Volume,
		QuoteVolume:        data.QuoteVolume,
		OpenTime:           time.UnixMilli(data.OpenTime),
		CloseTime:          time.UnixMilli(data.CloseTime),
		FirstID:            data.FirstID,
		LastID:             data.LastID,
		Count:              data.Count,
	}
}

func (n normalizer) Trades(data []binanceTrade, symbol string) []core.Trade {
	trades := make([]core.Trade, 0, len(data))
	for _, t := range data {
		trades = append(trades, core.Trade{
			ID:            t.ID,
			Symbol:        symbol,
			Price:         t.Price,
			Quantity:      t.Qty,
			QuoteQuantity: t.QuoteQty,
			Time:          time.UnixMilli(t.Time),
			IsBuyerMaker:  t.IsBuyerMaker,
		})
	}
	return trades
}

func (n normalizer) OrderBook(data *binanceDepth, symbol string) (*core.OrderBook, error) {
	bids, err := n.priceLevels(data.Bids)
	if err != nil {
		return nil, fmt.Errorf("normalize bids: %w", err)
	}
	asks, err := n.priceLevels(data.Asks)
	if err != nil {
		return nil, fmt.Errorf("normalize asks: %w", err)
	}

	return &core.OrderBook{
		Symbol:       symbol,
		LastUpdateID: data.LastUpdateID,
		Bids:         bids,
		Asks:         asks,
		Timestamp:    time.Now(),
	}, nil
}

func (n normalizer) priceLevels(levels [][]string) ([]core.PriceLevel, error) {
	result := make([]core.PriceLevel, 0, len(levels))
	for _, level := range levels {
		if len(level) < 2 {
			continue
		}
		var pl core.PriceLevel
		if err := parseDecimal(&pl.Price, level[0]); err != nil {
			return nil, fmt.Errorf("parse price: %w", err)
		}
		if err := parseDecimal(&pl.Quantity, level[1]); err != nil {
			return nil, fmt.Errorf("parse quantity: %w", err)
		}
		result = append(result, pl)
	}
	return result, nil
}

// Kline converts one positional tuple. The exchange pads with a trailing
// ignored field, so only the first 11 elements are read.
func (n normalizer) Kline(data binanceKline, symbol string) (*core.Kline, error) {
	if len(data) < 11 {
		return nil, fmt.Errorf("kline tuple has %d elements, want at least 11", len(data))
	}

	kline := &core.Kline{
		Symbol:   symbol,
		IsClosed: true,
	}

	openTime, ok := data[0].(float64)
	if !ok {
		return nil, fmt.Errorf("kline open time is %T, want number", data[0])
	}
	kline.OpenTime = time.UnixMilli(int64(openTime))

	closeTime, ok := data[6].(float64)
	if !ok {
		return nil, fmt.Errorf("kline close time is %T, want number", data[6])
	}
	kline.CloseTime = time.UnixMilli(int64(closeTime))

	fields := []struct {
		dst *apd.Decimal
		idx int
		nm  string
	}{
		{&kline.Open, 1, "open"},
		{&kline.High, 2, "high"},
		{&kline.Low, 3, "low"},
		{&kline.Close, 4, "close"},
		{&kline.Volume, 5, "volume"},
		{&kline.QuoteVolume, 7, "quote volume"},
		{&kline.TakerBuyBase, 9, "taker buy base"},
		{&kline.TakerBuyQuote, 10, "taker buy quote"},
	}
	for _, f := range fields {
		s, ok := data[f.idx].(string)
		if !ok {
			return nil, fmt.Errorf("kline %s is %T, want string", f.nm, data[f.idx])
		}
		if err := parseDecimal(f.dst, s); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.nm, err)
		}
	}

	if trades, ok := data[8].(float64); ok {
		kline.Trades = int64(trades)
	}

	return kline, nil
}

func (n normalizer) Klines(data []binanceKline, symbol string) ([]core.Kline, error) {
	klines := make([]core.Kline, 0, len(data))
	for _, k := range data {
		kline, err := n.Kline(k, symbol)
		if err != nil {
			return nil, fmt.Errorf("normalize kline: %w", err)
		}
		klines = append(klines, *kline)
	}
	return klines, nil
}

func parseDecimal(dst *apd.Decimal, s string) error {
	if _, _, err := dst.SetString(s); err != nil {
		return fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return nil
}
