package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-breakout/internal/rules"
	"go-breakout/internal/tools"
	"go-breakout/internal/types"
)

var monday = time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC)

type ohlc [4]float64

// dayBars lays bars out 5 minutes apart starting 09:15 on monday+dayIdx.
func dayBars(dayIdx int, bars ...ohlc) []types.Candle {
	start := monday.AddDate(0, 0, dayIdx)
	out := make([]types.Candle, len(bars))
	for i, b := range bars {
		out[i] = types.Candle{T: start.Add(time.Duration(i) * 5 * time.Minute), O: b[0], H: b[1], L: b[2], C: b[3], V: 100}
	}
	return out
}

// longTargetDay is the simple long trade: calibrate at 100, trigger candle
// high 100.5, entry at 100.6, target hit at 120.6.
func longTargetDay(dayIdx int) []types.Candle {
	return dayBars(dayIdx,
		ohlc{100, 100.1, 99.95, 100},
		ohlc{100, 100.5, 100.0, 100.2},
		ohlc{100.2, 100.7, 100.3, 100.6},
		ohlc{100.6, 120.6, 100.5, 120.6},
	)
}

func run(t *testing.T, candles []types.Candle, prevClose float64) Result {
	t.Helper()
	res, err := Run(context.Background(), candles, prevClose, DefaultConfig())
	require.NoError(t, err)
	return res
}

func TestRunEmptySeries(t *testing.T) {
	res := run(t, nil, 100)
	assert.Zero(t, res.TotalTrades)
	assert.Zero(t, res.WinRate)
	assert.Zero(t, res.ProfitFactor)
	assert.Zero(t, res.MaxDrawdown)
	require.NotNil(t, res.Trades)
	require.NotNil(t, res.Days)
	assert.Empty(t, res.Trades)
	assert.Empty(t, res.Days)
	assert.Empty(t, res.ExitReasons)
}

func TestRunGapFilterFails(t *testing.T) {
	day := dayBars(0,
		ohlc{22300, 22310, 22290, 22300},
		ohlc{22300, 22400, 22300, 22390},
		ohlc{22390, 22500, 22380, 22490},
	)
	res := run(t, day, 22000)
	require.Len(t, res.Days, 1)
	d := res.Days[0]
	assert.False(t, d.GapFilterPassed)
	assert.Zero(t, d.Trades)
	assert.Zero(t, d.FirstClose)
	assert.Equal(t, 22300.0, d.OpenPrice)
	assert.Equal(t, 22000.0, d.PrevClose)
	assert.Zero(t, res.TotalTrades)
	assert.Equal(t, 1, res.Stats.DaysSkipped)
}

func TestRunSimpleLongTrade(t *testing.T) {
	res := run(t, longTargetDay(0), 100)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, tools.Long, tr.Side)
	assert.Equal(t, 100.6, tr.Entry)
	assert.Equal(t, rules.ReasonTarget, tr.Reason)
	assert.InDelta(t, 20, tr.Profit, 1e-9)
	assert.Equal(t, monday.Add(10*time.Minute), tr.EntryTime)
	assert.Equal(t, monday.Add(15*time.Minute), tr.ExitTime)

	assert.Equal(t, 1, res.Wins)
	assert.Equal(t, 100.0, res.WinRate)
	assert.InDelta(t, 20, res.NetProfit, 1e-9)
	assert.Zero(t, res.GrossLoss)
	assert.Zero(t, res.ProfitFactor, "no losses means profit factor 0")

	require.Len(t, res.Days, 1)
	d := res.Days[0]
	assert.True(t, d.GapFilterPassed)
	assert.Equal(t, "2024-03-04", d.Date)
	assert.Equal(t, 100.0, d.FirstClose)
	assert.InDelta(t, 100.09, d.UpperTrigger, 1e-9)
	assert.InDelta(t, 99.91, d.LowerTrigger, 1e-9)
	assert.Equal(t, 1, d.Trades)
}

func TestRunStopLossAtDayLow(t *testing.T) {
	day := dayBars(0,
		ohlc{100, 100.1, 99.95, 100},
		ohlc{100, 100.5, 100.0, 100.2},
		ohlc{100.2, 100.7, 100.3, 100.6},
		ohlc{100.6, 100.6, 99.8, 99.8},
	)
	res := run(t, day, 100)
	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, rules.ReasonDayLowStop, tr.Reason)
	assert.InDelta(t, 99.8-100.6, tr.Profit, 1e-9)
	assert.Less(t, tr.Profit, 0.0)
	assert.Equal(t, 1, res.Losses)
	assert.Zero(t, res.ProfitFactor)
	assert.InDelta(t, 0.8, res.MaxDrawdown, 1e-9)
}

func TestRunThreadsPreviousClose(t *testing.T) {
	// day 1 ends at 120.6; day 2 opens 300 points above the seed
	day2 := dayBars(1,
		ohlc{400, 400.1, 399.9, 400},
		ohlc{400, 400.2, 399.8, 400.1},
	)
	near := dayBars(1,
		ohlc{120.7, 120.8, 120.6, 120.7},
		ohlc{120.7, 120.8, 120.6, 120.75},
	)

	res := run(t, append(longTargetDay(0), day2...), 100)
	require.Len(t, res.Days, 2)
	assert.Equal(t, 120.6, res.Days[1].PrevClose)
	assert.False(t, res.Days[1].GapFilterPassed)

	res = run(t, append(longTargetDay(0), near...), 100)
	require.Len(t, res.Days, 2)
	assert.True(t, res.Days[1].GapFilterPassed, "day 2 must compare against day 1's close, not the seed")
}

func TestRunDayIsolation(t *testing.T) {
	// the same day replayed twice trades twice; nothing leaks across the boundary
	day1 := longTargetDay(0)
	day2 := dayBars(1,
		ohlc{120.6, 120.7, 120.5, 120.6},
		ohlc{120.6, 120.8, 120.6, 120.7},
		ohlc{120.7, 120.9, 120.6, 120.8},
	)
	res := run(t, append(day1, day2...), 100)
	require.Len(t, res.Days, 2)
	assert.Equal(t, 1, res.Days[0].Trades)
	assert.Zero(t, res.Days[1].Trades)
	assert.Equal(t, 120.6, res.Days[1].FirstClose)
	assert.InDelta(t, 120.6*1.0009, res.Days[1].UpperTrigger, 1e-9)
}

func TestRunUnclosedEntryDropped(t *testing.T) {
	day := dayBars(0,
		ohlc{100, 100.1, 99.95, 100},
		ohlc{100, 100.5, 100.0, 100.2},
		ohlc{100.2, 100.7, 100.3, 100.6},
		ohlc{100.6, 101, 100.5, 100.9},
	)
	res := run(t, day, 100)
	assert.Empty(t, res.Trades)
	require.Len(t, res.Days, 1)
	assert.Equal(t, 1, res.Days[0].UnclosedEntries)
}

func TestRunBothSidesSameDay(t *testing.T) {
	day := dayBars(0,
		ohlc{100, 100.1, 99.95, 100},
		ohlc{100, 100.5, 100.0, 100.2},   // long trigger
		ohlc{100.2, 100.7, 100.3, 100.6}, // long entry
		ohlc{100.6, 100.6, 99.7, 99.8},   // short trigger
		ohlc{99.8, 99.8, 99.5, 99.5},     // short entry, long stop masked
		ohlc{99.5, 99.6, 99.4, 99.4},     // long stop
		ohlc{99.4, 99.4, 79.0, 79.0},     // short target
	)
	res := run(t, day, 100)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, tools.Long, res.Trades[0].Side)
	assert.Equal(t, rules.ReasonDayLowStop, res.Trades[0].Reason)
	assert.Equal(t, tools.Short, res.Trades[1].Side)
	assert.Equal(t, rules.ReasonTarget, res.Trades[1].Reason)
	assert.InDelta(t, 20.5, res.Trades[1].Profit, 1e-9)
	assert.Equal(t, 1, res.Stats.LongTrades)
	assert.Equal(t, 1, res.Stats.ShortTrades)
}

func TestRunIsIdempotent(t *testing.T) {
	candles := append(longTargetDay(0), longTargetDay(1)...)
	a := run(t, candles, 100)
	b := run(t, candles, 100)
	assert.Equal(t, a, b)
}

func TestRunErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Strategy.TargetPoints = 0
		_, err := Run(ctx, longTargetDay(0), 100, cfg)
		assert.ErrorIs(t, err, rules.ErrInvalidConfig)
	})
	t.Run("out of order", func(t *testing.T) {
		c := longTargetDay(0)
		c[1], c[2] = c[2], c[1]
		_, err := Run(ctx, c, 100, DefaultConfig())
		assert.ErrorIs(t, err, types.ErrNotChronological)
	})
	t.Run("duplicate timestamp", func(t *testing.T) {
		c := longTargetDay(0)
		c[2].T = c[1].T
		_, err := Run(ctx, c, 100, DefaultConfig())
		assert.ErrorIs(t, err, types.ErrNotChronological)
	})
	t.Run("malformed candle", func(t *testing.T) {
		c := longTargetDay(0)
		c[2].L = 200
		_, err := Run(ctx, c, 100, DefaultConfig())
		assert.ErrorIs(t, err, types.ErrInvalidCandle)
	})
	t.Run("canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Run(cctx, longTargetDay(0), 100, DefaultConfig())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSplitDays(t *testing.T) {
	assert.Nil(t, SplitDays(nil, time.UTC))

	candles := append(longTargetDay(0), longTargetDay(2)...)
	days := SplitDays(candles, nil)
	require.Len(t, days, 2)
	assert.Len(t, days[0], 4)
	assert.Len(t, days[1], 4)

	// 09:15 UTC is 19:15 in UTC+10, so 15:15 UTC already falls on the next day there
	late := types.Candle{T: monday.Add(6 * time.Hour), O: 1, H: 1, L: 1, C: 1}
	zone := time.FixedZone("UTC+10", 10*3600)
	days = SplitDays([]types.Candle{candles[0], late}, zone)
	assert.Len(t, days, 2)
	days = SplitDays([]types.Candle{candles[0], late}, time.UTC)
	assert.Len(t, days, 1)
}
