// go-breakout/internal/backtest/report.go
package backtest

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
)

type ReportOptions struct {
	// ShowDays adds the per-day table.
	ShowDays bool
	// ShowTrades adds the trade ledger.
	ShowTrades bool
	Style      table.Style
}

// RenderReport prints summary, exit-reason and optionally per-day and per-trade
// tables to w.
func RenderReport(w io.Writer, res Result, opt ReportOptions) {
	style := opt.Style
	if style.Name == "" {
		style = table.StyleLight
	}
	points := func(val interface{}) string {
		v, ok := val.(float64)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Sprint(val)
		}
		return decimal.NewFromFloat(v).StringFixed(2)
	}
	right := func(names ...string) []table.ColumnConfig {
		out := make([]table.ColumnConfig, 0, len(names))
		for _, n := range names {
			out = append(out, table.ColumnConfig{Name: n, Align: text.AlignRight, Transformer: points})
		}
		return out
	}

	tSummary := table.NewWriter()
	tSummary.SetOutputMirror(w)
	tSummary.SetStyle(style)
	tSummary.SetTitle("Backtest summary")
	tSummary.AppendHeader(table.Row{"Metric", "Value"})
	tSummary.SetColumnConfigs([]table.ColumnConfig{{Name: "Value", Align: text.AlignRight}})
	tSummary.AppendRows([]table.Row{
		{"Days (traded / skipped)", fmt.Sprintf("%d / %d", res.Stats.DaysTraded, res.Stats.DaysSkipped)},
		{"Total trades", res.TotalTrades},
		{"Wins / Losses", fmt.Sprintf("%d / %d", res.Wins, res.Losses)},
		{"Win rate", fmt.Sprintf("%.2f%%", res.WinRate)},
		{"Gross profit", points(res.GrossProfit)},
		{"Gross loss", points(res.GrossLoss)},
		{"Net profit", points(res.NetProfit)},
		{"Profit factor", points(res.ProfitFactor)},
		{"Max drawdown", points(res.MaxDrawdown)},
	})
	tSummary.AppendSeparator()
	tSummary.AppendRows([]table.Row{
		{"Avg trade", points(res.Stats.AvgTrade)},
		{"Std dev", points(res.Stats.StdDev)},
		{"Best / Worst", fmt.Sprintf("%s / %s", points(res.Stats.Best), points(res.Stats.Worst))},
		{"Expectancy", points(res.Stats.Expectancy)},
		{"Long / Short", fmt.Sprintf("%d / %d", res.Stats.LongTrades, res.Stats.ShortTrades)},
		{"Long / Short profit", fmt.Sprintf("%s / %s", points(res.Stats.LongProfit), points(res.Stats.ShortProfit))},
		{"Avg holding", (time.Duration(res.Stats.AvgHoldingMs) * time.Millisecond).String()},
	})
	tSummary.Render()

	if len(res.ExitReasons) > 0 {
		tExits := table.NewWriter()
		tExits.SetOutputMirror(w)
		tExits.SetStyle(style)
		tExits.AppendHeader(table.Row{"Exit Reason", "Exits", "Wins", "Tot Profit", "Avg Profit", "StdDev"})
		tExits.SetColumnConfigs(append(right("Tot Profit", "Avg Profit", "StdDev"),
			table.ColumnConfig{Name: "Exits", Align: text.AlignRight},
			table.ColumnConfig{Name: "Wins", Align: text.AlignRight}))
		for _, er := range res.ExitReasons {
			tExits.AppendRow(table.Row{er.Reason, er.Exits, er.Wins, er.Total, er.AvgProfit, er.StdDev})
		}
		tExits.Render()
	}

	if opt.ShowDays && len(res.Days) > 0 {
		tDays := table.NewWriter()
		tDays.SetOutputMirror(w)
		tDays.SetStyle(style)
		tDays.AppendHeader(table.Row{"Date", "Gap", "Open", "Prev Close", "First Close", "Upper", "Lower", "Trades", "Profit", "Unclosed"})
		tDays.SetColumnConfigs(right("Open", "Prev Close", "First Close", "Upper", "Lower", "Profit"))
		for _, d := range res.Days {
			gap := "fail"
			if d.GapFilterPassed {
				gap = "ok"
			}
			tDays.AppendRow(table.Row{d.Date, gap, d.OpenPrice, d.PrevClose, d.FirstClose,
				d.UpperTrigger, d.LowerTrigger, d.Trades, d.Profit, d.UnclosedEntries})
		}
		tDays.AppendFooter(table.Row{"", "", "", "", "", "", "Total", res.TotalTrades, points(res.NetProfit), ""})
		tDays.Render()
	}

	if opt.ShowTrades && len(res.Trades) > 0 {
		tTrades := table.NewWriter()
		tTrades.SetOutputMirror(w)
		tTrades.SetStyle(style)
		tTrades.AppendHeader(table.Row{"#", "Side", "Entry Time", "Entry", "Exit Time", "Exit", "Profit", "Reason"})
		tTrades.SetColumnConfigs(right("Entry", "Exit", "Profit"))
		for i, t := range res.Trades {
			tTrades.AppendRow(table.Row{i + 1, t.Side, t.EntryTime.Format(time.DateTime), t.Entry,
				t.ExitTime.Format(time.DateTime), t.Exit, t.Profit, t.Reason})
		}
		tTrades.Render()
	}
}
