package types

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTF(t *testing.T) {
	tests := []struct {
		in   string
		want TF
		ok   bool
	}{
		{"5m", TF5m, true},
		{" M15 ", TF15m, true},
		{"h1", TF1h, true},
		{"4h", TF4h, true},
		{"H4", TF4h, true},
		{"day", TF1d, true},
		{"7m", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseTF(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.Equal(t, 5*time.Minute, TF5m.Duration())
	assert.Equal(t, 4*time.Hour, TF4h.Duration())
	assert.Zero(t, TF("2w").Duration())
}

func TestAlign(t *testing.T) {
	ts := time.Date(2024, 3, 4, 9, 17, 42, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC), Align(ts, TF5m, nil))
	assert.Equal(t, time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), Align(ts, TF1h, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC), Align(ts, TF4h, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Align(ts, TF1d, time.UTC))
	assert.True(t, ts.Equal(Align(ts, TF("x"), nil)))
}

func TestCheckCandle(t *testing.T) {
	t0 := time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC)
	good := Candle{T: t0, O: 10, H: 11, L: 9, C: 10.5, V: 3}
	require.NoError(t, CheckCandle(good))

	bad := map[string]Candle{
		"zero time":     {O: 10, H: 11, L: 9, C: 10},
		"zero open":     {T: t0, H: 11, L: 9, C: 10},
		"nan close":     {T: t0, O: 10, H: 11, L: 9, C: math.NaN()},
		"inf high":      {T: t0, O: 10, H: math.Inf(1), L: 9, C: 10},
		"high below lo": {T: t0, O: 10, H: 8, L: 9, C: 10},
		"neg volume":    {T: t0, O: 10, H: 11, L: 9, C: 10, V: -1},
	}
	for name, c := range bad {
		assert.ErrorIs(t, CheckCandle(c), ErrInvalidCandle, name)
	}
}

func TestCheckChronological(t *testing.T) {
	t0 := time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC)
	cs := []Candle{{T: t0}, {T: t0.Add(time.Minute)}, {T: t0.Add(2 * time.Minute)}}
	require.NoError(t, CheckChronological(cs))
	require.NoError(t, CheckChronological(nil))

	cs[2].T = cs[1].T
	err := CheckChronological(cs)
	require.ErrorIs(t, err, ErrNotChronological)
	assert.Contains(t, err.Error(), "index 2")
}
