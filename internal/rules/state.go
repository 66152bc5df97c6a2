package rules

import (
	"time"

	"go-breakout/internal/types"
)

type Phase int

const (
	Uncalibrated Phase = iota
	Calibrated
)

func (p Phase) String() string {
	if p == Calibrated {
		return "calibrated"
	}
	return "uncalibrated"
}

// Position is one side's slot for the day.
type Position struct {
	Entry     float64   `json:"entry,omitempty"`
	EntryTime time.Time `json:"entry_time,omitempty"`
	Open      bool      `json:"open"`
	// Taken stays true after the exit: one entry per side per day.
	Taken bool `json:"taken"`
}

func (p Position) InPosition() bool { return p.Open }

// State is the engine's per-day state. A new day gets a new State; nothing
// here survives a day boundary.
type State struct {
	GapChecked bool    `json:"gap_checked"`
	GapPassed  bool    `json:"gap_passed"`
	PrevClose  float64 `json:"previous_close"`

	Calibrated   bool    `json:"calibrated"`
	FirstClose   float64 `json:"first_close"`
	UpperTrigger float64 `json:"upper_trigger"`
	LowerTrigger float64 `json:"lower_trigger"`

	LongTrigger  *types.Candle `json:"long_trigger,omitempty"`
	ShortTrigger *types.Candle `json:"short_trigger,omitempty"`

	DayHigh float64 `json:"day_high"`
	DayLow  float64 `json:"day_low"`

	Long  Position `json:"long"`
	Short Position `json:"short"`

	LastTime time.Time `json:"last_time,omitempty"`
}

func (s State) Phase() Phase {
	if s.Calibrated {
		return Calibrated
	}
	return Uncalibrated
}

// clone copies the trigger candles so a snapshot never aliases engine state.
func (s State) clone() State {
	if s.LongTrigger != nil {
		c := *s.LongTrigger
		s.LongTrigger = &c
	}
	if s.ShortTrigger != nil {
		c := *s.ShortTrigger
		s.ShortTrigger = &c
	}
	return s
}
