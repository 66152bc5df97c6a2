package rules

import (
	"fmt"

	"go-breakout/internal/tools"
)

type Action int

const (
	None Action = iota
	LongEntry
	ShortEntry
	LongExit
	ShortExit
)

var actionNames = [...]string{"none", "long_entry", "short_entry", "long_exit", "short_exit"}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Action) UnmarshalText(b []byte) error {
	for i, n := range actionNames {
		if n == string(b) {
			*a = Action(i)
			return nil
		}
	}
	return fmt.Errorf("unknown action %q", string(b))
}

func (a Action) IsEntry() bool { return a == LongEntry || a == ShortEntry }
func (a Action) IsExit() bool  { return a == LongExit || a == ShortExit }

// Side of the position the action opens or closes; empty for None.
func (a Action) Side() tools.Side {
	switch a {
	case LongEntry, LongExit:
		return tools.Long
	case ShortEntry, ShortExit:
		return tools.Short
	default:
		return ""
	}
}

// Exit reasons.
const (
	ReasonTarget       = "target"
	ReasonDayLowStop   = "stop-loss: day low"
	ReasonDayHighStop  = "stop-loss: day high"
	ReasonLongBreakout = "close above long trigger candle high"
	ReasonShortBreak   = "close below short trigger candle low"
)

// Signal is the outcome of feeding one candle.
type Signal struct {
	Action Action  `json:"action"`
	Price  float64 `json:"price,omitempty"`
	Reason string  `json:"reason,omitempty"`
}

func (s Signal) IsNone() bool { return s.Action == None }
