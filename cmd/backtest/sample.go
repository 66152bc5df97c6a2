// go-breakout/cmd/backtest/sample.go
package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"go-breakout/internal/backtest"
	"go-breakout/internal/sample"
)

func newSampleCmd() *cobra.Command {
	p := sample.DefaultParams()
	var out string
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write a synthetic candle CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			candles, err := sample.Generate(p)
			if err != nil {
				return err
			}
			if err := backtest.WriteCandlesCSV(candles, out); err != nil {
				return err
			}
			log.Info().Str("path", out).Int("candles", len(candles)).Msg("wrote sample")
			fmt.Fprintf(cmd.OutOrStdout(), "previous close: %g\n", p.StartPrice)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&out, "out", "o", "sample.csv", "output CSV path")
	fs.IntVar(&p.Days, "days", p.Days, "trading days")
	fs.IntVar(&p.BarsPerDay, "bars", p.BarsPerDay, "bars per day")
	fs.DurationVar(&p.Interval, "interval", p.Interval, "bar spacing")
	fs.Float64Var(&p.StartPrice, "start-price", p.StartPrice, "previous close before day 0")
	fs.Float64Var(&p.Volatility, "volatility", p.Volatility, "largest per-bar move as a fraction of price")
	fs.Float64SliceVar(&p.Gaps, "gaps", p.Gaps, "opening gaps in points, cycled over the days")
	fs.Int64Var(&p.Seed, "seed", p.Seed, "random seed")
	return cmd
}
