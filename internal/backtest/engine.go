// go-breakout/internal/backtest/engine.go
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"go-breakout/internal/rules"
	"go-breakout/internal/sessions"
	"go-breakout/internal/tools"
	"go-breakout/internal/types"
)

// Run replays candles day by day. Each day gets a fresh engine; the only
// value carried across days is the previous close, seeded from prevClose.
//
// Candles must be chronological and well formed; Run reports the first
// offending bar instead of repairing the series. ctx is checked between days.
func Run(ctx context.Context, candles []types.Candle, prevClose float64, cfg Config) (Result, error) {
	if problems := rules.ValidateConfig(cfg.Strategy); len(problems) > 0 {
		return Result{}, &rules.ConfigError{Problems: problems}
	}
	if len(candles) == 0 {
		return Summarize(nil, nil), nil
	}
	for i, c := range candles {
		if err := types.CheckCandle(c); err != nil {
			return Result{}, fmt.Errorf("candle %d: %w", i, err)
		}
	}
	if err := types.CheckChronological(candles); err != nil {
		return Result{}, err
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	days := SplitDays(candles, loc)
	trades := []Trade{}
	daily := make([]DailyResult, 0, len(days))
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		dr, dt, err := runDay(day, prevClose, cfg.Strategy, loc)
		if err != nil {
			return Result{}, fmt.Errorf("day %s: %w", sessions.DayKey(day[0].T, loc), err)
		}
		trades = append(trades, dt...)
		daily = append(daily, dr)
		prevClose = day[len(day)-1].C
	}

	res := Summarize(trades, daily)
	log.Debug().
		Int("days", len(daily)).
		Int("trades", res.TotalTrades).
		Float64("net", res.NetProfit).
		Float64("max_dd", res.MaxDrawdown).
		Msg("backtest done")
	return res, nil
}

// SplitDays groups consecutive candles that share a calendar date in loc.
// Input order is kept; no sorting happens here.
func SplitDays(candles []types.Candle, loc *time.Location) [][]types.Candle {
	if len(candles) == 0 {
		return nil
	}
	var out [][]types.Candle
	cur := []types.Candle{candles[0]}
	for _, c := range candles[1:] {
		if !sessions.SameDay(cur[0].T, c.T, loc) {
			out = append(out, cur)
			cur = nil
		}
		cur = append(cur, c)
	}
	return append(out, cur)
}

func runDay(day []types.Candle, prevClose float64, scfg rules.StrategyConfig, loc *time.Location) (DailyResult, []Trade, error) {
	eng, err := rules.NewEngine(scfg)
	if err != nil {
		return DailyResult{}, nil, err
	}
	first := day[0]
	dr := DailyResult{
		Date:      sessions.DayKey(first.T, loc),
		OpenPrice: first.O,
		PrevClose: prevClose,
	}
	if scfg.FirstCandleTime != "" && !sessions.IsFirstCandle(first, scfg.FirstCandleTime, loc) {
		log.Debug().Str("day", dr.Date).Time("first", first.T).
			Str("expected", scfg.FirstCandleTime).Msg("first candle off session open")
	}

	if !eng.CheckGapFilter(first.O, prevClose) {
		log.Debug().Str("day", dr.Date).Float64("open", first.O).
			Float64("prev_close", prevClose).Msg("gap filter failed, day skipped")
		return dr, nil, nil
	}
	dr.GapFilterPassed = true

	if _, err := eng.ProcessCandle(first, true); err != nil {
		return DailyResult{}, nil, err
	}
	st := eng.State()
	dr.FirstClose = st.FirstClose
	dr.UpperTrigger = st.UpperTrigger
	dr.LowerTrigger = st.LowerTrigger

	var trades []Trade
	open := map[tools.Side]*Trade{}
	for _, c := range day[1:] {
		sig, err := eng.ProcessCandle(c, false)
		if err != nil {
			return DailyResult{}, nil, err
		}
		side := sig.Action.Side()
		switch {
		case sig.Action.IsEntry():
			open[side] = &Trade{Side: side, EntryTime: c.T, Entry: sig.Price}
		case sig.Action.IsExit():
			t := open[side]
			if t == nil {
				continue
			}
			delete(open, side)
			t.ExitTime = c.T
			t.Exit = sig.Price
			t.Profit = tools.PointsPnL(t.Entry, t.Exit, side)
			t.ReturnPct = tools.PriceMoveSigned(t.Entry, t.Exit, side)
			t.Reason = sig.Reason
			trades = append(trades, *t)
			dr.Profit += t.Profit
		}
	}
	dr.Trades = len(trades)
	dr.UnclosedEntries = len(open)

	log.Debug().Str("day", dr.Date).Int("trades", dr.Trades).
		Float64("profit", dr.Profit).Int("unclosed", dr.UnclosedEntries).Msg("day done")
	return dr, trades, nil
}
