// go-breakout/internal/status/status.go
package status

import (
	"fmt"
	"html"
	"net/http"
	"time"

	"go-breakout/internal/live"
	"go-breakout/internal/rules"
)

// Lister is satisfied by *live.Store.
type Lister interface {
	List() []live.Snapshot
}

// Handler renders every open live session as one HTML table row. The page
// refreshes itself every refresh; zero disables that.
func Handler(src Lister, refresh time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snaps := src.List()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<!doctype html><html><head><meta charset="utf-8">`)
		if refresh > 0 {
			fmt.Fprintf(w, `<meta http-equiv="refresh" content="%d">`, int(refresh.Seconds()))
		}
		fmt.Fprint(w, `<title>Breakout sessions</title>
<style>
:root{
  --bg:#111; --fg:#eee; --muted:#aaa; --row:#151515; --grid:#2a2a2a;
  --up:#19c37d; --down:#ff6464; --blue:#9cf;
}
*{box-sizing:border-box}
body{background:var(--bg);color:var(--fg);font-family:ui-monospace,Menlo,Consolas,monospace;margin:16px}
h3{margin:0 0 10px}
small{color:var(--muted)}
table{border-collapse:collapse;width:100%}
th,td{padding:8px 10px;border-bottom:1px solid var(--grid);vertical-align:middle;white-space:nowrap}
th{color:var(--blue);text-align:left;font-weight:600}
tr:hover{background:var(--row)}
.num{font-variant-numeric:tabular-nums;text-align:right}
.up{color:var(--up)}
.down{color:var(--down)}
.muted{color:var(--muted)}
</style></head><body>`)

		fmt.Fprintf(w, `<h3>Live sessions <small>&nbsp;%d open, generated %s</small></h3>`,
			len(snaps), html.EscapeString(time.Now().UTC().Format(time.RFC3339)))

		if len(snaps) == 0 {
			fmt.Fprint(w, `<p class="muted">No open sessions. POST /api/sessions to start one.</p></body></html>`)
			return
		}

		fmt.Fprint(w, `<table>
<thead>
<tr>
  <th>Session</th>
  <th>Phase</th>
  <th>Gap</th>
  <th class="num">Prev close</th>
  <th class="num">First close</th>
  <th class="num">Upper</th>
  <th class="num">Lower</th>
  <th class="num">Day high</th>
  <th class="num">Day low</th>
  <th>Long</th>
  <th>Short</th>
  <th class="num">Candles</th>
  <th>Last signal</th>
  <th>Updated</th>
</tr>
</thead><tbody>`)

		for _, sn := range snaps {
			st := sn.State
			gap, gapClass := gapCell(st)
			long, longClass := positionCell(st.Long)
			short, shortClass := positionCell(st.Short)
			fmt.Fprintf(w, `<tr>
<td title="%s">%s</td>
<td>%s</td>
<td class="%s">%s</td>
<td class="num">%s</td>
<td class="num">%s</td>
<td class="num">%s</td>
<td class="num">%s</td>
<td class="num %s">%s</td>
<td class="num %s">%s</td>
<td class="%s">%s</td>
<td class="%s">%s</td>
<td class="num">%d</td>
<td class="%s">%s</td>
<td>%s</td>
</tr>`,
				html.EscapeString(sn.ID), html.EscapeString(shortID(sn.ID)),
				html.EscapeString(sn.Phase),
				gapClass, gap,
				price(sn.PrevClose),
				price(st.FirstClose),
				price(st.UpperTrigger),
				price(st.LowerTrigger),
				reached(st.DayHigh, st.UpperTrigger, true), price(st.DayHigh),
				reached(st.DayLow, st.LowerTrigger, false), price(st.DayLow),
				longClass, long,
				shortClass, short,
				sn.Candles,
				signalClass(sn.LastSignal), html.EscapeString(signalText(sn.LastSignal)),
				html.EscapeString(sn.Updated.UTC().Format(time.TimeOnly)),
			)
		}

		fmt.Fprint(w, `</tbody></table></body></html>`)
	})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func price(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

func gapCell(st rules.State) (string, string) {
	switch {
	case !st.GapChecked:
		return "-", "muted"
	case st.GapPassed:
		return "ok", "up"
	default:
		return "fail", "down"
	}
}

func positionCell(p rules.Position) (string, string) {
	switch {
	case p.InPosition():
		return fmt.Sprintf("open @ %.2f", p.Entry), "up"
	case p.Taken:
		return "done", "muted"
	default:
		return "-", "muted"
	}
}

func signalText(s rules.Signal) string {
	if s.IsNone() {
		return "-"
	}
	return fmt.Sprintf("%s %.2f", s.Action, s.Price)
}

func signalClass(s rules.Signal) string {
	switch s.Action {
	case rules.LongEntry, rules.ShortExit:
		return "up"
	case rules.ShortEntry, rules.LongExit:
		return "down"
	default:
		return "muted"
	}
}

// reached marks a day extreme that has touched its trigger level.
func reached(extreme, trigger float64, above bool) string {
	switch {
	case trigger == 0:
		return ""
	case above && extreme >= trigger:
		return "up"
	case !above && extreme <= trigger:
		return "down"
	default:
		return ""
	}
}
