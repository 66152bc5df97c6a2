// go-breakout/internal/backtest/csv.go
package backtest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"go-breakout/internal/types"
)

var ErrBadCSV = errors.New("malformed candle csv")

var (
	tradeHeader  = []string{"side", "entry_time", "exit_time", "entry_price", "exit_price", "profit", "return_pct", "exit_reason"}
	dailyHeader  = []string{"date", "trades", "profit", "gap_filter_passed", "open_price", "previous_close", "first_candle_close", "upper_trigger", "lower_trigger", "unclosed_entries"}
	candleHeader = []string{"timestamp", "open", "high", "low", "close", "volume"}
)

func WriteCSV(trades []Trade, path string) error {
	return writeFile(path, func(w io.Writer) error { return EncodeTradesCSV(w, trades) })
}

func WriteDailyCSV(days []DailyResult, path string) error {
	return writeFile(path, func(w io.Writer) error { return EncodeDailyCSV(w, days) })
}

func WriteCandlesCSV(candles []types.Candle, path string) error {
	return writeFile(path, func(w io.Writer) error { return EncodeCandlesCSV(w, candles) })
}

func writeFile(path string, enc func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := enc(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func EncodeTradesCSV(out io.Writer, trades []Trade) error {
	w := csv.NewWriter(out)
	_ = w.Write(tradeHeader)
	for _, t := range trades {
		_ = w.Write([]string{
			string(t.Side),
			t.EntryTime.Format(time.RFC3339),
			t.ExitTime.Format(time.RFC3339),
			formatF(t.Entry), formatF(t.Exit), formatF(t.Profit), formatF(t.ReturnPct),
			t.Reason,
		})
	}
	w.Flush()
	return w.Error()
}

func EncodeDailyCSV(out io.Writer, days []DailyResult) error {
	w := csv.NewWriter(out)
	_ = w.Write(dailyHeader)
	for _, d := range days {
		_ = w.Write([]string{
			d.Date,
			strconv.Itoa(d.Trades),
			formatF(d.Profit),
			strconv.FormatBool(d.GapFilterPassed),
			formatF(d.OpenPrice), formatF(d.PrevClose), formatF(d.FirstClose),
			formatF(d.UpperTrigger), formatF(d.LowerTrigger),
			strconv.Itoa(d.UnclosedEntries),
		})
	}
	w.Flush()
	return w.Error()
}

// EncodeCandlesCSV writes candles losslessly; ReadCandlesCSV gives back the
// exact same bars.
func EncodeCandlesCSV(out io.Writer, candles []types.Candle) error {
	w := csv.NewWriter(out)
	_ = w.Write(candleHeader)
	for _, c := range candles {
		_ = w.Write([]string{
			c.T.Format(time.RFC3339Nano),
			exactF(c.O), exactF(c.H), exactF(c.L), exactF(c.C),
			strconv.FormatInt(c.V, 10),
		})
	}
	w.Flush()
	return w.Error()
}

// ReadCandlesCSV parses timestamp,open,high,low,close[,volume] rows. A header
// row is optional. Timestamps are RFC3339 or unix milliseconds.
func ReadCandlesCSV(in io.Reader) ([]types.Candle, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var out []types.Candle
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadCSV, err)
		}
		line++
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "timestamp") {
			continue
		}
		c, err := parseCandle(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadCSV, line, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func ReadCandlesFile(path string) ([]types.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCandlesCSV(f)
}

func parseCandle(rec []string) (types.Candle, error) {
	if len(rec) < 5 {
		return types.Candle{}, fmt.Errorf("want at least 5 fields, got %d", len(rec))
	}
	ts, err := parseTime(strings.TrimSpace(rec[0]))
	if err != nil {
		return types.Candle{}, err
	}
	var px [4]float64
	for i := range px {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
		if err != nil {
			return types.Candle{}, fmt.Errorf("field %s: %v", candleHeader[i+1], err)
		}
		px[i] = v
	}
	c := types.Candle{T: ts, O: px[0], H: px[1], L: px[2], C: px[3]}
	if len(rec) > 5 && strings.TrimSpace(rec[5]) != "" {
		v, err := parseVolume(strings.TrimSpace(rec[5]))
		if err != nil {
			return types.Candle{}, fmt.Errorf("field volume: %v", err)
		}
		c.V = v
	}
	return c, nil
}

// parseVolume takes integers as is and truncates fractional volumes.
func parseVolume(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func parseTime(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func exactF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// formatF renders at most 6 decimals with trailing zeros trimmed, so float
// noise like 19.999999999997 prints as 20.
func formatF(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return decimal.NewFromFloat(f).Round(6).String()
}
