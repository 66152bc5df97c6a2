// go-breakout/internal/rules/engine.go
package rules

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go-breakout/internal/tools"
	"go-breakout/internal/types"
)

var (
	ErrGapFilterUnchecked = errors.New("gap filter not checked for this day")
	ErrNotCalibrated      = errors.New("engine not calibrated: first candle of the day missing")
	ErrAlreadyCalibrated  = errors.New("engine already calibrated for this day")
)

// Engine evaluates one trading day, one candle at a time.
//
// An Engine is single-owner: it mutates its state in place and does no
// locking. Use a fresh Engine per day and per concurrent run.
type Engine struct {
	cfg StrategyConfig
	st  State
}

// NewEngine returns an engine for a single day. cfg is checked eagerly; the
// returned error is a *ConfigError listing every problem.
func NewEngine(cfg StrategyConfig) (*Engine, error) {
	if problems := ValidateConfig(cfg); len(problems) > 0 {
		return nil, &ConfigError{Problems: problems}
	}
	return &Engine{cfg: cfg}, nil
}

func (e *Engine) Config() StrategyConfig { return e.cfg }

// State returns a copy of the current day state.
func (e *Engine) State() State { return e.st.clone() }

// CheckGapFilter passes iff |openPrice - prevClose| <= tolerance. A failed
// verdict turns the rest of the day into a no-op.
func (e *Engine) CheckGapFilter(openPrice, prevClose float64) bool {
	passed := math.Abs(openPrice-prevClose) <= e.cfg.GapTolerance
	e.st.PrevClose = prevClose
	e.st.GapChecked = true
	e.st.GapPassed = passed
	return passed
}

// Calibrate records the first candle's close as the reference price and
// derives both triggers from it. Ignored when the gap filter did not pass.
func (e *Engine) Calibrate(c types.Candle) {
	if !e.st.GapPassed {
		return
	}
	e.st.Calibrated = true
	e.st.FirstClose = c.C
	e.st.UpperTrigger = c.C * e.cfg.UpperMultiplier
	e.st.LowerTrigger = c.C * e.cfg.LowerMultiplier
	e.st.DayHigh = c.H
	e.st.DayLow = c.L
	e.st.LastTime = c.T
}

// UpdateExtremes widens the day range and records trigger candles. The first
// close beyond a trigger wins; later qualifiers never replace it.
func (e *Engine) UpdateExtremes(c types.Candle) {
	if !e.st.Calibrated {
		return
	}
	if c.H > e.st.DayHigh {
		e.st.DayHigh = c.H
	}
	if c.L < e.st.DayLow {
		e.st.DayLow = c.L
	}
	if e.st.LongTrigger == nil && c.C > e.st.UpperTrigger {
		tc := c
		e.st.LongTrigger = &tc
	}
	if e.st.ShortTrigger == nil && c.C < e.st.LowerTrigger {
		tc := c
		e.st.ShortTrigger = &tc
	}
}

// CheckEntry fires at most one entry per side per day, at the candle's close.
func (e *Engine) CheckEntry(c types.Candle) Signal {
	if tc := e.st.LongTrigger; tc != nil && !e.st.Long.Taken && c.C > tc.H {
		e.st.Long = Position{Entry: c.C, EntryTime: c.T, Open: true, Taken: true}
		return Signal{Action: LongEntry, Price: c.C, Reason: ReasonLongBreakout}
	}
	if tc := e.st.ShortTrigger; tc != nil && !e.st.Short.Taken && c.C < tc.L {
		e.st.Short = Position{Entry: c.C, EntryTime: c.T, Open: true, Taken: true}
		return Signal{Action: ShortEntry, Price: c.C, Reason: ReasonShortBreak}
	}
	return Signal{}
}

// CheckExit closes an open position on the day extreme (stop) or on the
// target. Stops are checked first.
func (e *Engine) CheckExit(c types.Candle) Signal {
	if e.st.Long.InPosition() {
		switch {
		case c.C <= e.st.DayLow:
			e.st.Long.Open = false
			return Signal{Action: LongExit, Price: c.C, Reason: ReasonDayLowStop}
		case c.C >= tools.TargetPrice(e.st.Long.Entry, tools.Long, e.cfg.TargetPoints):
			e.st.Long.Open = false
			return Signal{Action: LongExit, Price: c.C, Reason: ReasonTarget}
		}
	}
	if e.st.Short.InPosition() {
		switch {
		case c.C >= e.st.DayHigh:
			e.st.Short.Open = false
			return Signal{Action: ShortExit, Price: c.C, Reason: ReasonDayHighStop}
		case c.C <= tools.TargetPrice(e.st.Short.Entry, tools.Short, e.cfg.TargetPoints):
			e.st.Short.Open = false
			return Signal{Action: ShortExit, Price: c.C, Reason: ReasonTarget}
		}
	}
	return Signal{}
}

// ProcessCandle feeds one candle. The first candle calibrates; every other
// candle runs extremes -> entries -> exits and returns the first non-None
// result, so an entry on a candle hides an exit on the same candle.
func (e *Engine) ProcessCandle(c types.Candle, isFirst bool) (Signal, error) {
	if err := types.CheckCandle(c); err != nil {
		return Signal{}, err
	}
	if !e.st.GapChecked {
		return Signal{}, ErrGapFilterUnchecked
	}
	if !e.st.LastTime.IsZero() && !c.T.After(e.st.LastTime) {
		return Signal{}, fmt.Errorf("%w: %s after %s", types.ErrNotChronological,
			c.T.Format(time.RFC3339), e.st.LastTime.Format(time.RFC3339))
	}
	if !e.st.GapPassed {
		e.st.LastTime = c.T
		return Signal{}, nil
	}

	if isFirst {
		if e.st.Calibrated {
			return Signal{}, ErrAlreadyCalibrated
		}
		e.Calibrate(c)
		return Signal{}, nil
	}
	if !e.st.Calibrated {
		return Signal{}, ErrNotCalibrated
	}

	e.st.LastTime = c.T
	e.UpdateExtremes(c)
	if sig := e.CheckEntry(c); !sig.IsNone() {
		return sig, nil
	}
	return e.CheckExit(c), nil
}

// Evaluate is the live seam: the caller already knows whether today's gap
// filter passed and hands the verdict in with the candle.
func (e *Engine) Evaluate(c types.Candle, isFirst, gapPassed bool) (Signal, error) {
	e.st.GapChecked = true
	e.st.GapPassed = gapPassed
	return e.ProcessCandle(c, isFirst)
}
