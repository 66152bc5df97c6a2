package aster

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"go-breakout/internal/types"
)

// LoadCandles fetches the most recent n trade klines for symbol.
// Example: symbol="BTCUSDT", tf=types.TF15m, n=200.
func (c *Client) LoadCandles(ctx context.Context, symbol string, tf types.TF, n int) ([]types.Candle, error) {
	symbol = ExchangeSymbol(symbol)
	if symbol == "" {
		return nil, ErrNoSymbol
	}
	if n <= 0 {
		n = 200
	}
	iv, err := tfToInterval(tf)
	if err != nil {
		return nil, err
	}
	u, err := c.buildURL("/klines", map[string]string{
		"symbol":   symbol,
		"interval": iv,
		"limit":    strconv.Itoa(n),
	})
	if err != nil {
		return nil, err
	}
	raw, err := c.fetchKlines(ctx, u)
	if err != nil {
		return nil, err
	}
	out := make([]types.Candle, 0, len(raw))
	for _, r := range raw {
		if cdl, ok := klineRowToCandle(r); ok {
			out = append(out, cdl)
		}
	}
	return out, nil
}

func (c *Client) fetchKlines(ctx context.Context, fullURL string) ([][]json.Number, error) {
	// rows are [openTime, "o", "h", "l", "c", "baseVol", closeTime, "quoteVol", ...]
	var raw [][]json.Number
	if err := c.fetchJSON(ctx, fullURL, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func tfToInterval(tf types.TF) (string, error) {
	if tf.Duration() <= 0 {
		return "", fmt.Errorf("aster: unsupported TF %q", tf)
	}
	return tf.String(), nil
}

// klineRowToCandle drops rows that are short or carry unparsable numbers.
func klineRowToCandle(r []json.Number) (types.Candle, bool) {
	if len(r) < 6 {
		return types.Candle{}, false
	}
	ms, err := r[0].Int64()
	if err != nil {
		return types.Candle{}, false
	}
	var px [5]float64
	for i := range px {
		f, err := strconv.ParseFloat(r[i+1].String(), 64)
		if err != nil {
			return types.Candle{}, false
		}
		px[i] = f
	}
	return types.Candle{
		T: time.UnixMilli(ms).UTC(),
		O: px[0], H: px[1], L: px[2], C: px[3],
		V: int64(math.Round(px[4])),
	}, true
}
