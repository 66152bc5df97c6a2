// go-breakout/internal/backtest/types.go
package backtest

import (
	"time"

	"go-breakout/internal/rules"
	"go-breakout/internal/tools"
)

type Config struct {
	Strategy rules.StrategyConfig `json:"strategy" yaml:"strategy" mapstructure:"strategy"`

	// Location decides where one trading day ends and the next begins.
	// nil means UTC.
	Location *time.Location `json:"-" yaml:"-"`
}

func DefaultConfig() Config {
	return Config{Strategy: rules.DefaultConfig(), Location: time.UTC}
}

// Trade is one completed round trip. Profit is in underlying-price points.
type Trade struct {
	Side      tools.Side `json:"side"`
	EntryTime time.Time  `json:"entry_time"`
	ExitTime  time.Time  `json:"exit_time"`
	Entry     float64    `json:"entry_price"`
	Exit      float64    `json:"exit_price"`
	Profit    float64    `json:"profit"`
	ReturnPct float64    `json:"return_pct"`
	Reason    string     `json:"exit_reason"`
}

func (t Trade) Win() bool { return t.Profit > 0 }

func (t Trade) Duration() time.Duration { return t.ExitTime.Sub(t.EntryTime) }

// DailyResult holds one day's diagnostics. Trigger fields are zero when the
// gap filter failed.
type DailyResult struct {
	Date            string  `json:"date"`
	Trades          int     `json:"trades"`
	Profit          float64 `json:"profit"`
	GapFilterPassed bool    `json:"gap_filter_passed"`
	OpenPrice       float64 `json:"open_price"`
	PrevClose       float64 `json:"previous_close"`
	FirstClose      float64 `json:"first_candle_close"`
	UpperTrigger    float64 `json:"upper_trigger"`
	LowerTrigger    float64 `json:"lower_trigger"`
	// entries still open at the last candle of the day; they produce no trade
	UnclosedEntries int `json:"unclosed_entries"`
}

type Stats struct {
	AvgTrade     float64 `json:"avg_trade"`
	StdDev       float64 `json:"std_dev"`
	Best         float64 `json:"best_trade"`
	Worst        float64 `json:"worst_trade"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	Expectancy   float64 `json:"expectancy"`
	LongTrades   int     `json:"long_trades"`
	ShortTrades  int     `json:"short_trades"`
	LongProfit   float64 `json:"long_profit"`
	ShortProfit  float64 `json:"short_profit"`
	DaysTraded   int     `json:"days_traded"`
	DaysSkipped  int     `json:"days_skipped"`
	AvgHoldingMs int64   `json:"avg_holding_ms"`
}

type ExitReasonStat struct {
	Reason    string  `json:"reason"`
	Exits     int     `json:"exits"`
	Wins      int     `json:"wins"`
	Total     float64 `json:"total_profit"`
	AvgProfit float64 `json:"avg_profit"`
	StdDev    float64 `json:"std_dev"`
}

// Result is the aggregate of one backtest run.
type Result struct {
	TotalTrades  int     `json:"total_trades"`
	Wins         int     `json:"winning_trades"`
	Losses       int     `json:"losing_trades"`
	WinRate      float64 `json:"win_rate"`
	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"`
	NetProfit    float64 `json:"net_profit"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	ProfitFactor float64 `json:"profit_factor"`

	Trades []Trade       `json:"trades"`
	Days   []DailyResult `json:"daily_results"`

	Stats       Stats            `json:"stats"`
	ExitReasons []ExitReasonStat `json:"exit_reasons"`
}
