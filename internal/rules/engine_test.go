package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-breakout/internal/types"
)

var day0 = time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC)

// bar builds a 5m candle at slot i of the test day.
func bar(i int, o, h, l, c float64) types.Candle {
	return types.Candle{T: day0.Add(time.Duration(i) * 5 * time.Minute), O: o, H: h, L: l, C: c, V: 1000}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)
	return e
}

// calibrated returns an engine whose gap filter passed and whose first candle
// closed at 100 (upper trigger 100.09, lower 99.91).
func calibrated(t *testing.T) *Engine {
	t.Helper()
	e := newTestEngine(t)
	require.True(t, e.CheckGapFilter(100, 100))
	sig, err := e.ProcessCandle(bar(0, 100, 100.1, 99.95, 100), true)
	require.NoError(t, err)
	require.True(t, sig.IsNone())
	return e
}

func feed(t *testing.T, e *Engine, c types.Candle) Signal {
	t.Helper()
	sig, err := e.ProcessCandle(c, false)
	require.NoError(t, err)
	return sig
}

func TestCheckGapFilter(t *testing.T) {
	tests := []struct {
		name      string
		open      float64
		prevClose float64
		want      bool
	}{
		{"no gap", 22000, 22000, true},
		{"gap up within tolerance", 22100, 22000, true},
		{"gap down within tolerance", 21900, 22000, true},
		{"gap up exactly at tolerance", 22150, 22000, true},
		{"gap down exactly at tolerance", 21850, 22000, true},
		{"gap up just beyond", 22150.01, 22000, false},
		{"gap down just beyond", 21849.99, 22000, false},
		{"gap of 300 points", 22300, 22000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			assert.Equal(t, tt.want, e.CheckGapFilter(tt.open, tt.prevClose))
			st := e.State()
			assert.True(t, st.GapChecked)
			assert.Equal(t, tt.want, st.GapPassed)
			assert.Equal(t, tt.prevClose, st.PrevClose)

			// symmetric in its arguments
			e2 := newTestEngine(t)
			assert.Equal(t, tt.want, e2.CheckGapFilter(tt.prevClose, tt.open))
		})
	}
}

func TestGapFilterFailedDayIsNoOp(t *testing.T) {
	e := newTestEngine(t)
	require.False(t, e.CheckGapFilter(22300, 22000))

	sig, err := e.ProcessCandle(bar(0, 22300, 22310, 22290, 22300), true)
	require.NoError(t, err)
	assert.True(t, sig.IsNone())

	// a textbook breakout still produces nothing
	for i, c := range []types.Candle{
		bar(1, 22300, 22400, 22300, 22390),
		bar(2, 22390, 22500, 22380, 22490),
		bar(3, 22490, 22600, 22480, 22590),
	} {
		sig := feed(t, e, c)
		assert.Truef(t, sig.IsNone(), "candle %d", i+1)
	}
	st := e.State()
	assert.False(t, st.Calibrated)
	assert.Nil(t, st.LongTrigger)
	assert.Equal(t, Uncalibrated, st.Phase())
}

func TestCalibrate(t *testing.T) {
	e := calibrated(t)
	st := e.State()
	assert.Equal(t, Calibrated, st.Phase())
	assert.Equal(t, 100.0, st.FirstClose)
	assert.InDelta(t, 100.09, st.UpperTrigger, 1e-9)
	assert.InDelta(t, 99.91, st.LowerTrigger, 1e-9)
	assert.Equal(t, 100.1, st.DayHigh)
	assert.Equal(t, 99.95, st.DayLow)
}

func TestScenarioSimpleLongTrade(t *testing.T) {
	e := calibrated(t)

	// closes above the upper trigger: becomes the long trigger candle
	sig := feed(t, e, bar(1, 100, 100.5, 100.0, 100.2))
	assert.True(t, sig.IsNone())
	require.NotNil(t, e.State().LongTrigger)
	assert.Equal(t, 100.5, e.State().LongTrigger.H)

	// breaks the trigger candle high
	sig = feed(t, e, bar(2, 100.2, 100.7, 100.3, 100.6))
	assert.Equal(t, LongEntry, sig.Action)
	assert.Equal(t, 100.6, sig.Price)
	assert.True(t, e.State().Long.InPosition())

	sig = feed(t, e, bar(3, 100.6, 110, 100.5, 110))
	assert.True(t, sig.IsNone())

	target := 100.6 + DefaultConfig().TargetPoints
	sig = feed(t, e, bar(4, 110, target, 109, target))
	assert.Equal(t, LongExit, sig.Action)
	assert.Equal(t, ReasonTarget, sig.Reason)
	assert.InDelta(t, DefaultConfig().TargetPoints, sig.Price-100.6, 1e-9)
	assert.False(t, e.State().Long.InPosition())
}

func TestScenarioStopLossAtDayLow(t *testing.T) {
	e := calibrated(t)
	feed(t, e, bar(1, 100, 100.5, 100.0, 100.2))
	sig := feed(t, e, bar(2, 100.2, 100.7, 100.3, 100.6))
	require.Equal(t, LongEntry, sig.Action)

	// close equal to the new day low
	sig = feed(t, e, bar(3, 100.6, 100.6, 99.8, 99.8))
	assert.Equal(t, LongExit, sig.Action)
	assert.Equal(t, ReasonDayLowStop, sig.Reason)
	assert.Equal(t, 99.8, e.State().DayLow)
	assert.InDelta(t, 99.8-100.6, sig.Price-100.6, 1e-9)
}

func TestSimpleShortTrade(t *testing.T) {
	e := calibrated(t)

	sig := feed(t, e, bar(1, 100, 100, 99.5, 99.8))
	assert.True(t, sig.IsNone())
	require.NotNil(t, e.State().ShortTrigger)

	sig = feed(t, e, bar(2, 99.8, 99.8, 99.3, 99.4))
	assert.Equal(t, ShortEntry, sig.Action)
	assert.Equal(t, 99.4, sig.Price)

	sig = feed(t, e, bar(3, 99.4, 99.4, 79.4, 79.4))
	assert.Equal(t, ShortExit, sig.Action)
	assert.Equal(t, ReasonTarget, sig.Reason)
}

func TestShortStopAtDayHigh(t *testing.T) {
	e := calibrated(t)
	feed(t, e, bar(1, 100, 100, 99.5, 99.8))
	require.Equal(t, ShortEntry, feed(t, e, bar(2, 99.8, 99.8, 99.3, 99.4)).Action)

	sig := feed(t, e, bar(3, 99.4, 100.3, 99.4, 100.3))
	assert.Equal(t, ShortExit, sig.Action)
	assert.Equal(t, ReasonDayHighStop, sig.Reason)
}

func TestTriggerCandleNeverReplaced(t *testing.T) {
	e := calibrated(t)
	first := bar(1, 100, 100.5, 100.0, 100.2)
	feed(t, e, first)

	// also closes above the upper trigger but stays below the trigger high
	feed(t, e, bar(2, 100.2, 101.0, 100.1, 100.3))
	feed(t, e, bar(3, 100.3, 100.45, 100.1, 100.4))

	st := e.State()
	require.NotNil(t, st.LongTrigger)
	assert.Equal(t, first.T, st.LongTrigger.T)
	assert.Equal(t, 100.5, st.LongTrigger.H)
	assert.Equal(t, 101.0, st.DayHigh)
}

func TestOneEntryPerSidePerDay(t *testing.T) {
	e := calibrated(t)
	feed(t, e, bar(1, 100, 100.5, 100.0, 100.2))
	require.Equal(t, LongEntry, feed(t, e, bar(2, 100.2, 100.7, 100.3, 100.6)).Action)

	// re-crossing the trigger high while in position
	assert.True(t, feed(t, e, bar(3, 100.6, 100.9, 100.4, 100.8)).IsNone())

	require.Equal(t, LongExit, feed(t, e, bar(4, 100.8, 121, 100.8, 121)).Action)

	// flat again, price still above the trigger high: no re-entry
	for i := 5; i < 10; i++ {
		assert.True(t, feed(t, e, bar(i, 121, 122, 120.9, 121.5)).IsNone())
	}
	st := e.State()
	assert.True(t, st.Long.Taken)
	assert.False(t, st.Long.Open)
}

func TestEntryHidesExitOnSameCandle(t *testing.T) {
	e := calibrated(t)
	feed(t, e, bar(1, 100, 100.5, 100.0, 100.2))
	require.Equal(t, LongEntry, feed(t, e, bar(2, 100.2, 100.7, 100.3, 100.6)).Action)

	// closes below the lower trigger: becomes the short trigger candle (low 99.7)
	assert.True(t, feed(t, e, bar(3, 100.6, 100.6, 99.7, 99.8)).IsNone())

	// breaks the short trigger low and also sits on the day low
	sig := feed(t, e, bar(4, 99.8, 99.8, 99.5, 99.5))
	assert.Equal(t, ShortEntry, sig.Action)
	assert.True(t, e.State().Long.InPosition(), "long stop must not fire on the entry candle")

	assert.True(t, feed(t, e, bar(5, 99.5, 99.7, 99.55, 99.6)).IsNone())

	sig = feed(t, e, bar(6, 99.6, 99.6, 99.4, 99.4))
	assert.Equal(t, LongExit, sig.Action)
	assert.Equal(t, ReasonDayLowStop, sig.Reason)
	assert.True(t, e.State().Short.InPosition())
}

func TestDayIsolation(t *testing.T) {
	day1 := calibrated(t)
	feed(t, day1, bar(1, 100, 100.5, 100.0, 100.2))
	feed(t, day1, bar(2, 100.2, 100.7, 100.3, 100.6))
	require.True(t, day1.State().Long.Open)

	day2 := newTestEngine(t)
	st := day2.State()
	assert.Zero(t, st.DayHigh)
	assert.Zero(t, st.DayLow)
	assert.Nil(t, st.LongTrigger)
	assert.Nil(t, st.ShortTrigger)
	assert.False(t, st.Long.Open)
	assert.False(t, st.Long.Taken)
	assert.False(t, st.GapChecked)
}

func TestProcessCandleErrors(t *testing.T) {
	t.Run("gap filter unchecked", func(t *testing.T) {
		e := newTestEngine(t)
		_, err := e.ProcessCandle(bar(0, 100, 101, 99, 100), true)
		assert.ErrorIs(t, err, ErrGapFilterUnchecked)
	})
	t.Run("not calibrated", func(t *testing.T) {
		e := newTestEngine(t)
		e.CheckGapFilter(100, 100)
		_, err := e.ProcessCandle(bar(1, 100, 101, 99, 100), false)
		assert.ErrorIs(t, err, ErrNotCalibrated)
	})
	t.Run("calibrated twice", func(t *testing.T) {
		e := calibrated(t)
		_, err := e.ProcessCandle(bar(1, 100, 101, 99, 100), true)
		assert.ErrorIs(t, err, ErrAlreadyCalibrated)
	})
	t.Run("out of order", func(t *testing.T) {
		e := calibrated(t)
		feed(t, e, bar(2, 100, 100.05, 99.95, 100))
		_, err := e.ProcessCandle(bar(1, 100, 100.05, 99.95, 100), false)
		assert.ErrorIs(t, err, types.ErrNotChronological)
	})
	t.Run("malformed candle", func(t *testing.T) {
		e := calibrated(t)
		_, err := e.ProcessCandle(bar(1, 100, 99, 101, 100), false)
		assert.ErrorIs(t, err, types.ErrInvalidCandle)
		_, err = e.ProcessCandle(bar(1, 0, 101, 99, 100), false)
		assert.ErrorIs(t, err, types.ErrInvalidCandle)
	})
}

func TestEvaluate(t *testing.T) {
	t.Run("caller says gap failed", func(t *testing.T) {
		e := newTestEngine(t)
		sig, err := e.Evaluate(bar(0, 100, 100.1, 99.95, 100), true, false)
		require.NoError(t, err)
		assert.True(t, sig.IsNone())
		sig, err = e.Evaluate(bar(1, 100, 100.5, 100.0, 100.2), false, false)
		require.NoError(t, err)
		assert.True(t, sig.IsNone())
		assert.False(t, e.State().Calibrated)
	})
	t.Run("caller says gap passed", func(t *testing.T) {
		e := newTestEngine(t)
		candles := []types.Candle{
			bar(0, 100, 100.1, 99.95, 100),
			bar(1, 100, 100.5, 100.0, 100.2),
			bar(2, 100.2, 100.7, 100.3, 100.6),
		}
		var last Signal
		for i, c := range candles {
			sig, err := e.Evaluate(c, i == 0, true)
			require.NoError(t, err)
			last = sig
		}
		assert.Equal(t, LongEntry, last.Action)
	})
}

func TestStateSnapshotDoesNotAlias(t *testing.T) {
	e := calibrated(t)
	feed(t, e, bar(1, 100, 100.5, 100.0, 100.2))
	snap := e.State()
	snap.LongTrigger.H = 1
	assert.Equal(t, 100.5, e.State().LongTrigger.H)
}

func TestDeterministicReplay(t *testing.T) {
	candles := []types.Candle{
		bar(0, 100, 100.1, 99.95, 100),
		bar(1, 100, 100.5, 100.0, 100.2),
		bar(2, 100.2, 100.7, 100.3, 100.6),
		bar(3, 100.6, 100.6, 99.7, 99.8),
		bar(4, 99.8, 99.8, 99.5, 99.5),
		bar(5, 99.5, 99.6, 99.4, 99.4),
	}
	run := func() []Signal {
		e := newTestEngine(t)
		e.CheckGapFilter(candles[0].O, 100)
		out := make([]Signal, 0, len(candles))
		for i, c := range candles {
			sig, err := e.ProcessCandle(c, i == 0)
			require.NoError(t, err)
			out = append(out, sig)
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestActionText(t *testing.T) {
	for _, a := range []Action{None, LongEntry, ShortEntry, LongExit, ShortExit} {
		b, err := a.MarshalText()
		require.NoError(t, err)
		var back Action
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, a, back)
	}
	var a Action
	assert.Error(t, a.UnmarshalText([]byte("hold")))
	assert.Equal(t, "action(9)", Action(9).String())
	assert.True(t, LongEntry.IsEntry())
	assert.True(t, ShortExit.IsExit())
	assert.Equal(t, "", string(None.Side()))
}
