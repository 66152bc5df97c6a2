package aster

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"go-breakout/internal/types"
)

const pageLimit = 500

// LoadCandlesRange fetches klines over [start,end] by paging forward with
// startTime+limit. It tries /klines first and falls back to /markPriceKlines
// when the gateway does not serve trade klines.
func (c *Client) LoadCandlesRange(ctx context.Context, symbol string, tf types.TF, start, end time.Time) ([]types.Candle, error) {
	symbol = ExchangeSymbol(symbol)
	if symbol == "" {
		return nil, ErrNoSymbol
	}
	if !end.After(start) {
		return nil, ErrBadWindow
	}
	interval, err := tfToInterval(tf)
	if err != nil {
		return nil, err
	}
	// the bar that contains start opens on the boundary before it
	start = types.Align(start, tf, time.UTC)

	out, err := c.pageForward(ctx, "/klines", symbol, interval, tf.Duration(), start, end)
	if errors.Is(err, ErrNotFound) {
		log.Debug().Str("symbol", symbol).Msg("klines not served, trying mark price klines")
		out, err = c.pageForward(ctx, "/markPriceKlines", symbol, interval, tf.Duration(), start, end)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s %s (%s..%s): %w", symbol, tf,
			start.Format(time.RFC3339), end.Format(time.RFC3339), err)
	}
	return out, nil
}

func (c *Client) pageForward(ctx context.Context, endpoint, symbol, interval string, tfDur time.Duration, start, end time.Time) ([]types.Candle, error) {
	cursor := start
	var out []types.Candle

	for cursor.Before(end) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		u, err := c.buildURL(endpoint, map[string]string{
			"symbol":    symbol,
			"interval":  interval,
			"startTime": strconv.FormatInt(cursor.UnixMilli(), 10),
			"limit":     strconv.Itoa(pageLimit),
		})
		if err != nil {
			return nil, err
		}
		raw, err := c.fetchKlines(ctx, u)
		if err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			break
		}
		var last time.Time
		for _, r := range raw {
			cdl, ok := klineRowToCandle(r)
			if !ok || cdl.T.Before(cursor) || cdl.T.After(end) {
				continue
			}
			if len(out) > 0 && !cdl.T.After(out[len(out)-1].T) {
				continue
			}
			out = append(out, cdl)
			last = cdl.T
		}
		if last.IsZero() {
			// nothing usable on this page; skip a page worth of bars
			cursor = cursor.Add(tfDur * pageLimit)
			continue
		}
		cursor = last.Add(tfDur)
		if len(raw) < pageLimit {
			break
		}
	}
	return out, nil
}
