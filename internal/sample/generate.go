// go-breakout/internal/sample/generate.go
package sample

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"go-breakout/internal/types"
)

var (
	ErrInvalidParams = errors.New("invalid sample params")
	ErrPriceFloor    = errors.New("generated price fell to zero")
)

// Params shape a synthetic series. Gaps are point offsets applied to each
// day's first open relative to the previous close, cycling when shorter than
// Days; day 0 gaps against StartPrice.
type Params struct {
	Days       int           `json:"days" yaml:"days" validate:"gte=1,lte=3660"`
	BarsPerDay int           `json:"bars_per_day" yaml:"bars_per_day" validate:"gte=1,lte=1440"`
	Start      time.Time     `json:"start" yaml:"start" validate:"required"`
	Interval   time.Duration `json:"interval" yaml:"interval" validate:"gt=0"`
	StartPrice float64       `json:"start_price" yaml:"start_price" validate:"gt=0"`
	// Volatility is the largest per-bar move as a fraction of price.
	Volatility float64   `json:"volatility" yaml:"volatility" validate:"gte=0,lt=1"`
	Gaps       []float64 `json:"gaps,omitempty" yaml:"gaps,omitempty"`
	Seed       int64     `json:"seed" yaml:"seed"`
}

// DefaultParams is one trading week of 5m bars from 09:15 to 15:30, with one
// day gapping far enough to fail a 150 point filter.
func DefaultParams() Params {
	return Params{
		Days:       5,
		BarsPerDay: 75,
		Start:      time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC),
		Interval:   5 * time.Minute,
		StartPrice: 22000,
		Volatility: 0.0008,
		Gaps:       []float64{0, 40, -60, 300, -20},
		Seed:       1,
	}
}

var validate = validator.New()

func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
		return fmt.Errorf("%w: %s", ErrInvalidParams, strings.Join(msgs, "; "))
	}
	if time.Duration(p.BarsPerDay-1)*p.Interval >= 24*time.Hour {
		return fmt.Errorf("%w: %d bars of %s do not fit in one day", ErrInvalidParams, p.BarsPerDay, p.Interval)
	}
	return nil
}

// Generate builds Days x BarsPerDay candles. Day d starts at Start+d days;
// bars within a day are Interval apart. The same Params always yield the same
// series. Backtest it with StartPrice as the previous close.
func Generate(p Params) ([]types.Candle, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	r := rand.New(rand.NewSource(p.Seed))
	out := make([]types.Candle, 0, p.Days*p.BarsPerDay)

	prevClose := p.StartPrice
	for d := 0; d < p.Days; d++ {
		dayStart := p.Start.AddDate(0, 0, d)
		price := round2(prevClose + gapFor(p.Gaps, d))
		if price <= 0 {
			return nil, fmt.Errorf("%w: day %d opens at %v", ErrPriceFloor, d, price)
		}
		for i := 0; i < p.BarsPerDay; i++ {
			c, err := nextBar(r, dayStart.Add(time.Duration(i)*p.Interval), price, p.Volatility)
			if err != nil {
				return nil, fmt.Errorf("day %d bar %d: %w", d, i, err)
			}
			out = append(out, c)
			price = c.C
		}
		prevClose = price
	}
	return out, nil
}

func gapFor(gaps []float64, day int) float64 {
	if len(gaps) == 0 {
		return 0
	}
	return gaps[day%len(gaps)]
}

// nextBar opens at open and random-walks by at most vol of the price.
func nextBar(r *rand.Rand, ts time.Time, open, vol float64) (types.Candle, error) {
	ret := (r.Float64() - 0.5) * 2 * vol
	closePx := round2(open * (1 + ret))
	high := round2(math.Max(open, closePx) * (1 + r.Float64()*vol*0.5))
	low := round2(math.Min(open, closePx) * (1 - r.Float64()*vol*0.5))
	if low <= 0 || closePx <= 0 {
		return types.Candle{}, ErrPriceFloor
	}
	return types.Candle{
		T: ts,
		O: open,
		H: high,
		L: low,
		C: closePx,
		V: 1_000 + r.Int63n(5_000),
	}, nil
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
