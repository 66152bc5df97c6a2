// go-breakout/cmd/backtest/run.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"go-breakout/adapters/aster"
	"go-breakout/internal/backtest"
	"go-breakout/internal/rules"
	"go-breakout/internal/sample"
	"go-breakout/internal/sessions"
	"go-breakout/internal/types"
)

type strategyFlags struct {
	gap, upper, lower, target float64
	firstCandle               string
}

func (sf *strategyFlags) register(cmd *cobra.Command) {
	d := rules.DefaultConfig()
	fs := cmd.Flags()
	fs.Float64Var(&sf.gap, "gap-tolerance", d.GapTolerance, "max |open - previous close| in points")
	fs.Float64Var(&sf.upper, "upper", d.UpperMultiplier, "upper trigger multiplier")
	fs.Float64Var(&sf.lower, "lower", d.LowerMultiplier, "lower trigger multiplier")
	fs.Float64Var(&sf.target, "target", d.TargetPoints, "profit target in points")
	fs.StringVar(&sf.firstCandle, "first-candle", d.FirstCandleTime, "session open HH:MM")
}

// apply overrides base with the flags the user actually set.
func (sf *strategyFlags) apply(cmd *cobra.Command, base rules.StrategyConfig) rules.StrategyConfig {
	fs := cmd.Flags()
	if fs.Changed("gap-tolerance") {
		base.GapTolerance = sf.gap
	}
	if fs.Changed("upper") {
		base.UpperMultiplier = sf.upper
	}
	if fs.Changed("lower") {
		base.LowerMultiplier = sf.lower
	}
	if fs.Changed("target") {
		base.TargetPoints = sf.target
	}
	if fs.Changed("first-candle") {
		base.FirstCandleTime = sf.firstCandle
	}
	return base
}

type runFlags struct {
	strategy strategyFlags

	csvPath  string
	scenario string
	sample   bool
	seed     int64

	symbol, tf, start, end string
	last                   int
	asterURL               string

	prevClose float64
	location  string

	days, trades bool
	outCSV       string
	outDaily     string
	outJSON      string
	outYAML      string
}

func newRunCmd(rf *rootFlags) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Backtest a candle series",
		Example: `  backtest run --sample --days
  backtest run --csv nifty_5m.csv --prev-close 22000 --target 25 --out-csv trades.csv
  backtest run --symbol BTCUSDT --tf 5m --start 2024-03-01 --end 2024-03-08 --prev-close 62000
  backtest run --scenario testdata/gap_day.yaml --trades`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBacktest(cmd, rf, f)
		},
	}
	fs := cmd.Flags()
	f.strategy.register(cmd)
	fs.StringVar(&f.csvPath, "csv", "", "candle CSV (timestamp,open,high,low,close,volume)")
	fs.StringVar(&f.scenario, "scenario", "", "YAML scenario with candles, previous close and config")
	fs.BoolVar(&f.sample, "sample", false, "backtest a generated sample week")
	fs.Int64Var(&f.seed, "seed", 1, "seed for --sample")
	fs.StringVar(&f.symbol, "symbol", "", "fetch candles from asterdex for this symbol")
	fs.StringVar(&f.tf, "tf", "5m", "timeframe for --symbol (1m,5m,15m,1h,4h)")
	fs.StringVar(&f.start, "start", "", "start date for --symbol (YYYY-MM-DD or RFC3339)")
	fs.StringVar(&f.end, "end", "", "end date for --symbol (YYYY-MM-DD or RFC3339)")
	fs.IntVar(&f.last, "last", 0, "fetch the latest N bars for --symbol instead of a date range")
	fs.StringVar(&f.asterURL, "aster-url", "", "override the asterdex base URL")
	fs.Float64Var(&f.prevClose, "prev-close", 0, "close of the day before the first candle")
	fs.StringVar(&f.location, "location", "", "IANA zone for day boundaries (default from config, UTC)")
	fs.BoolVar(&f.days, "days", false, "print the per-day table")
	fs.BoolVar(&f.trades, "trades", false, "print every trade")
	fs.StringVar(&f.outCSV, "out-csv", "", "write trades to CSV")
	fs.StringVar(&f.outDaily, "out-daily", "", "write per-day results to CSV")
	fs.StringVar(&f.outJSON, "out-json", "", "write the full result as JSON")
	fs.StringVar(&f.outYAML, "out-yaml", "", "write the full result as YAML")
	cmd.MarkFlagsMutuallyExclusive("csv", "scenario", "sample", "symbol")
	cmd.MarkFlagsOneRequired("csv", "scenario", "sample", "symbol")
	return cmd
}

func runBacktest(cmd *cobra.Command, rf *rootFlags, f *runFlags) error {
	conf, err := rf.load()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	strategy := conf.Strategy
	loc := conf.Loc
	prevClose := 0.0
	var candles []types.Candle

	switch {
	case f.csvPath != "":
		candles, err = backtest.ReadCandlesFile(f.csvPath)
	case f.scenario != "":
		var sc scenario
		sc, err = loadScenario(f.scenario)
		if err == nil {
			candles, prevClose, strategy = sc.Candles, sc.PreviousClose, sc.overlay(strategy)
			if sc.Location != "" {
				loc, err = sessions.LoadLocation(sc.Location)
			}
		}
	case f.sample:
		p := sample.DefaultParams()
		p.Seed = f.seed
		candles, err = sample.Generate(p)
		prevClose = p.StartPrice
	case f.symbol != "":
		base := f.asterURL
		if base == "" {
			base = conf.AsterBaseURL
		}
		candles, err = fetchRemote(ctx, aster.New(base), f)
	}
	if err != nil {
		return err
	}

	strategy = f.strategy.apply(cmd, strategy)
	if f.location != "" {
		if loc, err = sessions.LoadLocation(f.location); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("prev-close") {
		prevClose = f.prevClose
	}
	if prevClose <= 0 {
		return errors.New("--prev-close is required for this input")
	}

	log.Info().Int("candles", len(candles)).Float64("prev_close", prevClose).
		Str("location", loc.String()).Msg("running backtest")
	started := time.Now()
	res, err := backtest.Run(ctx, candles, prevClose, backtest.Config{Strategy: strategy, Location: loc})
	if err != nil {
		return err
	}
	log.Info().Dur("took", time.Since(started)).Int("trades", res.TotalTrades).Msg("backtest done")

	backtest.RenderReport(cmd.OutOrStdout(), res, backtest.ReportOptions{
		ShowDays:   f.days,
		ShowTrades: f.trades,
		Style:      table.StyleRounded,
	})
	return writeOutputs(res, f)
}

func fetchRemote(ctx context.Context, c *aster.Client, f *runFlags) ([]types.Candle, error) {
	tf, ok := types.ParseTF(f.tf)
	if !ok {
		return nil, fmt.Errorf("bad --tf %q", f.tf)
	}
	if f.last > 0 && f.start == "" && f.end == "" {
		log.Info().Str("pair", aster.NormSymbol(f.symbol)).Str("tf", tf.String()).Int("bars", f.last).Msg("fetching latest candles")
		return c.LoadCandles(ctx, f.symbol, tf, f.last)
	}
	start, err := parseDate(f.start)
	if err != nil {
		return nil, fmt.Errorf("bad --start: %w", err)
	}
	end, err := parseDate(f.end)
	if err != nil {
		return nil, fmt.Errorf("bad --end: %w", err)
	}
	log.Info().Str("pair", aster.NormSymbol(f.symbol)).Str("tf", tf.String()).
		Time("start", start).Time("end", end).Msg("fetching candles")
	return c.LoadCandlesRange(ctx, f.symbol, tf, start, end)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("required")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func writeOutputs(res backtest.Result, f *runFlags) error {
	if f.outCSV != "" {
		if err := backtest.WriteCSV(res.Trades, f.outCSV); err != nil {
			return err
		}
		log.Info().Str("path", f.outCSV).Msg("wrote trades")
	}
	if f.outDaily != "" {
		if err := backtest.WriteDailyCSV(res.Days, f.outDaily); err != nil {
			return err
		}
		log.Info().Str("path", f.outDaily).Msg("wrote daily results")
	}
	if f.outJSON == "" && f.outYAML == "" {
		return nil
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	if f.outJSON != "" {
		if err := os.WriteFile(f.outJSON, b, 0o644); err != nil {
			return err
		}
		log.Info().Str("path", f.outJSON).Msg("wrote json")
	}
	if f.outYAML != "" {
		// Round-trip through JSON so the YAML keys match the JSON ones.
		var generic map[string]any
		if err := json.Unmarshal(b, &generic); err != nil {
			return err
		}
		y, err := yaml.Marshal(generic)
		if err != nil {
			return err
		}
		if err := os.WriteFile(f.outYAML, y, 0o644); err != nil {
			return err
		}
		log.Info().Str("path", f.outYAML).Msg("wrote yaml")
	}
	return nil
}
