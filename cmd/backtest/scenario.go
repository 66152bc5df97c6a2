// go-breakout/cmd/backtest/scenario.go
package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"go-breakout/internal/rules"
	"go-breakout/internal/types"
)

// scenario is a self-contained backtest input, handy for reproducing a day:
//
//	previous_close: 22000
//	location: Asia/Kolkata
//	config:
//	  target_points: 25
//	candles:
//	  - {timestamp: 2024-03-04T09:15:00+05:30, open: 22010, high: 22030, low: 22000, close: 22020, volume: 0}
type scenario struct {
	Name          string                `yaml:"name"`
	PreviousClose float64               `yaml:"previous_close"`
	Location      string                `yaml:"location"`
	Config        *rules.StrategyConfig `yaml:"config"`
	Candles       []types.Candle        `yaml:"candles"`
}

func loadScenario(path string) (scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return scenario{}, err
	}
	var sc scenario
	if err := yaml.Unmarshal(b, &sc); err != nil {
		return scenario{}, fmt.Errorf("scenario %s: %w", path, err)
	}
	return sc, nil
}

// overlay replaces the non-zero fields of base with those in sc.Config, so a
// scenario only has to name what it changes.
func (sc scenario) overlay(base rules.StrategyConfig) rules.StrategyConfig {
	if sc.Config == nil {
		return base
	}
	o := *sc.Config
	if o.GapTolerance != 0 {
		base.GapTolerance = o.GapTolerance
	}
	if o.UpperMultiplier != 0 {
		base.UpperMultiplier = o.UpperMultiplier
	}
	if o.LowerMultiplier != 0 {
		base.LowerMultiplier = o.LowerMultiplier
	}
	if o.TargetPoints != 0 {
		base.TargetPoints = o.TargetPoints
	}
	if o.FirstCandleTime != "" {
		base.FirstCandleTime = o.FirstCandleTime
	}
	return base
}
