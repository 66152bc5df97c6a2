// go-breakout/internal/sessions/sessions.go
package sessions

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go-breakout/internal/types"
)

var ErrBadClock = errors.New("bad HH:MM clock time")

const dayLayout = "2006-01-02"

// LoadLocation resolves an IANA zone name; "" and "UTC" give time.UTC.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "utc") {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", name, err)
	}
	return loc, nil
}

// ParseHM parses "09:15" into hour and minute.
func ParseHM(s string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	return t.Hour(), t.Minute(), nil
}

// DayKey is the calendar date of t in loc, as YYYY-MM-DD.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dayLayout)
}

func SameDay(a, b time.Time, loc *time.Location) bool {
	return DayKey(a, loc) == DayKey(b, loc)
}

// SessionOpen returns the instant hm falls on, on day's date in loc.
func SessionOpen(day time.Time, hm string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	h, m, err := ParseHM(hm)
	if err != nil {
		return time.Time{}, err
	}
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, loc), nil
}

// IsFirstCandle reports whether c opens exactly at the session's first-candle
// time. Informational only: the orchestrator treats the first bar of each day
// as the first candle whatever its clock time.
func IsFirstCandle(c types.Candle, hm string, loc *time.Location) bool {
	if hm == "" {
		return true
	}
	open, err := SessionOpen(c.T, hm, loc)
	if err != nil {
		return false
	}
	return c.T.Equal(open)
}
