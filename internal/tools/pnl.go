package tools

import "math"

// Side represents long/short direction.
type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

func (s Side) Valid() bool { return s == Long || s == Short }

// PointsPnL is the realized profit of one round trip in underlying-price
// points. Premium moves one point per index point; this is an approximation,
// not an option-pricing model.
// Example: long, entry 100 -> exit 120 => +20 ; short, same => -20.
func PointsPnL(entry, exit float64, side Side) float64 {
	if !side.Valid() {
		return math.NaN()
	}
	if side == Short {
		return entry - exit
	}
	return exit - entry
}

// TargetPrice is the take-profit level `points` in the trade's favour.
func TargetPrice(entry float64, side Side, points float64) float64 {
	switch side {
	case Long:
		return entry + points
	case Short:
		return entry - points
	default:
		return math.NaN()
	}
}

// PriceMoveSigned returns the signed % move helpful for the position.
// Example: long, entry 100 -> mark 105 => +5% ; short, same => -5%.
func PriceMoveSigned(entry, mark float64, side Side) float64 {
	if entry <= 0 || !side.Valid() {
		return 0
	}
	raw := (mark - entry) / entry * 100
	if side == Short {
		raw = -raw
	}
	return raw
}
