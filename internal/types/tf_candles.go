// go-breakout/internal/types/tf_candles.go
package types

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrInvalidCandle    = errors.New("invalid candle")
	ErrNotChronological = errors.New("candles not in chronological order")
)

// ---- Timeframes ----

type TF string

const (
	TF1m  TF = "1m"
	TF3m  TF = "3m"
	TF5m  TF = "5m"
	TF15m TF = "15m"
	TF30m TF = "30m"
	TF1h  TF = "1h"
	TF4h  TF = "4h"
	TF1d  TF = "1d"
)

func (tf TF) String() string { return string(tf) }

var tfDurations = map[TF]time.Duration{
	TF1m:  time.Minute,
	TF3m:  3 * time.Minute,
	TF5m:  5 * time.Minute,
	TF15m: 15 * time.Minute,
	TF30m: 30 * time.Minute,
	TF1h:  time.Hour,
	TF4h:  4 * time.Hour,
	TF1d:  24 * time.Hour,
}

// MetaTrader-style names and a couple of spellings seen in CSV exports.
var tfAliases = map[string]TF{
	"m1": TF1m, "m3": TF3m, "m5": TF5m, "m15": TF15m, "m30": TF30m,
	"h1": TF1h, "60m": TF1h,
	"h4": TF4h, "240m": TF4h,
	"d1": TF1d, "1day": TF1d, "day": TF1d,
}

// ParseTF accepts canonical names ("5m") and the aliases above, case-insensitively.
func ParseTF(s string) (TF, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := tfDurations[TF(s)]; ok {
		return TF(s), true
	}
	tf, ok := tfAliases[s]
	return tf, ok
}

// Duration is zero for an unknown TF.
func (tf TF) Duration() time.Duration { return tfDurations[tf] }

// Align t down to the nearest tf boundary in the given location (or UTC if nil).
func Align(t time.Time, tf TF, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	d := tf.Duration()
	if d <= 0 {
		return t.In(loc)
	}
	tt := t.In(loc)
	switch tf {
	case TF1d:
		y, m, dday := tt.Date()
		return time.Date(y, m, dday, 0, 0, 0, 0, loc)
	default:
		epoch := time.Date(1970, 1, 1, 0, 0, 0, 0, loc)
		elapsed := tt.Sub(epoch)
		slots := elapsed / d
		return epoch.Add(slots * d)
	}
}

// ---- Candle types ----

// Candle is one fixed-duration OHLCV bar. Treat it as immutable once built.
type Candle struct {
	T time.Time `json:"timestamp" yaml:"timestamp"`
	O float64   `json:"open" yaml:"open"`
	H float64   `json:"high" yaml:"high"`
	L float64   `json:"low" yaml:"low"`
	C float64   `json:"close" yaml:"close"`
	V int64     `json:"volume" yaml:"volume"`
}

type CandleSet struct {
	Symbol string   `json:"symbol"`
	TF     TF       `json:"tf"`
	Data   []Candle `json:"data"`
}

// CheckCandle rejects bars the rule engine cannot reason about.
func CheckCandle(c Candle) error {
	if c.T.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidCandle)
	}
	for _, p := range []struct {
		name string
		v    float64
	}{{"open", c.O}, {"high", c.H}, {"low", c.L}, {"close", c.C}} {
		if math.IsNaN(p.v) || math.IsInf(p.v, 0) || p.v <= 0 {
			return fmt.Errorf("%w: %s %v at %s", ErrInvalidCandle, p.name, p.v, c.T.Format(time.RFC3339))
		}
	}
	if c.H < c.L {
		return fmt.Errorf("%w: high %v below low %v at %s", ErrInvalidCandle, c.H, c.L, c.T.Format(time.RFC3339))
	}
	if c.V < 0 {
		return fmt.Errorf("%w: negative volume at %s", ErrInvalidCandle, c.T.Format(time.RFC3339))
	}
	return nil
}

// CheckChronological reports the first pair of bars whose timestamps do not
// strictly increase. It never reorders.
func CheckChronological(cs []Candle) error {
	for i := 1; i < len(cs); i++ {
		if !cs[i].T.After(cs[i-1].T) {
			return fmt.Errorf("%w: index %d (%s) not after index %d (%s)", ErrNotChronological,
				i, cs[i].T.Format(time.RFC3339), i-1, cs[i-1].T.Format(time.RFC3339))
		}
	}
	return nil
}
