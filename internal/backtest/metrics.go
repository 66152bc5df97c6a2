// go-breakout/internal/backtest/metrics.go
package backtest

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"go-breakout/internal/tools"
)

// Summarize rolls trades and days up into a Result. trades must be in
// chronological order: drawdown is measured trade by trade.
//
// A zero-profit trade is a loss. Profit factor is 0, not +Inf, when there is
// no gross loss.
func Summarize(trades []Trade, days []DailyResult) Result {
	if trades == nil {
		trades = []Trade{}
	}
	if days == nil {
		days = []DailyResult{}
	}
	res := Result{
		TotalTrades: len(trades),
		Trades:      trades,
		Days:        days,
		ExitReasons: ExitReasonBreakdown(trades),
	}

	var lossSum float64
	for _, t := range trades {
		if t.Win() {
			res.Wins++
			res.GrossProfit += t.Profit
		} else {
			res.Losses++
			lossSum += t.Profit
		}
	}
	res.GrossLoss = math.Abs(lossSum)
	res.NetProfit = res.GrossProfit - res.GrossLoss
	if res.TotalTrades > 0 {
		res.WinRate = 100 * float64(res.Wins) / float64(res.TotalTrades)
	}
	res.ProfitFactor = profitFactor(res.GrossProfit, res.GrossLoss)
	res.MaxDrawdown = maxDrawdown(trades)
	res.Stats = fillStats(trades, days)
	return res
}

func profitFactor(gain, loss float64) float64 {
	if loss == 0 {
		return 0
	}
	return gain / loss
}

// maxDrawdown is the largest fall of cumulative profit from its running
// peak. The peak starts at 0, so a losing first trade counts.
func maxDrawdown(trades []Trade) float64 {
	var cum, peak, dd float64
	for _, t := range trades {
		cum += t.Profit
		if cum > peak {
			peak = cum
		}
		if peak-cum > dd {
			dd = peak - cum
		}
	}
	return dd
}

func fillStats(trades []Trade, days []DailyResult) Stats {
	var s Stats
	for _, d := range days {
		if d.GapFilterPassed {
			s.DaysTraded++
		} else {
			s.DaysSkipped++
		}
	}
	n := len(trades)
	if n == 0 {
		return s
	}

	profits := make([]float64, n)
	var wins, losses []float64
	var held int64
	s.Best, s.Worst = math.Inf(-1), math.Inf(1)
	for i, t := range trades {
		profits[i] = t.Profit
		s.Best = math.Max(s.Best, t.Profit)
		s.Worst = math.Min(s.Worst, t.Profit)
		if t.Win() {
			wins = append(wins, t.Profit)
		} else {
			losses = append(losses, t.Profit)
		}
		switch t.Side {
		case tools.Long:
			s.LongTrades++
			s.LongProfit += t.Profit
		case tools.Short:
			s.ShortTrades++
			s.ShortProfit += t.Profit
		}
		held += t.Duration().Milliseconds()
	}
	s.AvgTrade = stat.Mean(profits, nil)
	s.StdDev = stdDev(profits)
	if len(wins) > 0 {
		s.AvgWin = stat.Mean(wins, nil)
	}
	if len(losses) > 0 {
		s.AvgLoss = stat.Mean(losses, nil)
	}
	winP := float64(len(wins)) / float64(n)
	s.Expectancy = winP*s.AvgWin + (1-winP)*s.AvgLoss
	s.AvgHoldingMs = held / int64(n)
	return s
}

// stdDev is the sample standard deviation, 0 below two samples.
func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

// ExitReasonBreakdown groups trades by exit reason, most frequent first.
func ExitReasonBreakdown(trades []Trade) []ExitReasonStat {
	byReason := map[string][]float64{}
	wins := map[string]int{}
	for _, t := range trades {
		byReason[t.Reason] = append(byReason[t.Reason], t.Profit)
		if t.Win() {
			wins[t.Reason]++
		}
	}
	out := make([]ExitReasonStat, 0, len(byReason))
	for reason, ps := range byReason {
		var total float64
		for _, p := range ps {
			total += p
		}
		out = append(out, ExitReasonStat{
			Reason:    reason,
			Exits:     len(ps),
			Wins:      wins[reason],
			Total:     total,
			AvgProfit: total / float64(len(ps)),
			StdDev:    stdDev(ps),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Exits != out[j].Exits {
			return out[i].Exits > out[j].Exits
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}
