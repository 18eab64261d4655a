package journal

import (
	"io"
	"text/template"
	"time"

	"github.com/rustyeddy/pnl/pnl"
)

// SyncRun mirrors the sync_runs table.
type SyncRun struct {
	RunID    string
	Strategy string // profile the run belongs to
	Created  time.Time

	// Window the activities were fetched for
	Start time.Time
	End   time.Time

	// Counts
	Records  int // raw activities received
	Fills    int // records that normalized
	Trades   int
	OpenLots int

	TotalPnL float64
	Errors   []string
}

// Report is the view rendered by WriteReportOrg.
type Report struct {
	Run     SyncRun
	Summary pnl.Summary
	Curve   []pnl.DailyPnL
}

var reportOrgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var reportOrg = template.Must(template.New("report").Funcs(reportOrgFuncs).Parse(ReportOrgTemplate))

// WriteReportOrg renders r as an Org-mode document.
func WriteReportOrg(w io.Writer, r Report) error {
	return reportOrg.Execute(w, r)
}

const ReportOrgTemplate = `* P&L: {{if .Run.Strategy}}{{.Run.Strategy}}{{else}}(profile?){{end}} {{.Run.Start.Format "2006-01-02"}} .. {{.Run.End.Format "2006-01-02"}}
:PROPERTIES:
:RUN_ID:      {{if .Run.RunID}}{{.Run.RunID}}{{else}}(run-id?){{end}}
:PROFILE:     {{.Run.Strategy}}
:WINDOW_FROM: {{.Run.Start.Format "2006-01-02T15:04:05Z07:00"}}
:WINDOW_TO:   {{.Run.End.Format "2006-01-02T15:04:05Z07:00"}}
:RECORDS:     {{.Run.Records}}
:FILLS:       {{.Run.Fills}}
:OPEN_LOTS:   {{.Run.OpenLots}}
:TOTAL_PNL:   {{printf "%.2f" .Summary.TotalPnL}}
:TRADES:      {{.Summary.Trades}}
:WINS:        {{.Summary.Wins}}
:LOSSES:      {{.Summary.Losses}}
:WIN_RATE:    {{printf "%.2f" (mul100 .Summary.WinRate)}}
:PROFIT_FAC:  {{if ne .Summary.ProfitFactor 0.0}}{{printf "%.2f" .Summary.ProfitFactor}}{{else}}(no losses){{end}}
:CREATED:     [{{(orTime .Run.Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Total P&L:        *{{printf "%.2f" .Summary.TotalPnL}}*
- Gross Profit:     *{{printf "%.2f" .Summary.GrossProfit}}*
- Gross Loss:       *{{printf "%.2f" .Summary.GrossLoss}}*
- Win Rate:         *{{printf "%.2f" (mul100 .Summary.WinRate)}}%*

** By Symbol
| Symbol | Trades | P&L |
|--------+--------+-----|
{{- range .Summary.BySymbol }}
| {{.Symbol}} | {{.Trades}} | {{printf "%.2f" .PnL}} |
{{- end }}

** Top Winners
| Symbol | Type | Qty | Entry | Exit | P&L |
|--------+------+-----+-------+------+-----|
{{- range .Summary.TopWinners }}
| {{.Symbol}} | {{.Type}} | {{printf "%g" .Qty}} | {{printf "%.4f" .EntryPrice}} | {{printf "%.4f" .ExitPrice}} | {{printf "%.2f" .PnL}} |
{{- end }}

** Top Losers
| Symbol | Type | Qty | Entry | Exit | P&L |
|--------+------+-----+-------+------+-----|
{{- range .Summary.TopLosers }}
| {{.Symbol}} | {{.Type}} | {{printf "%g" .Qty}} | {{printf "%.4f" .EntryPrice}} | {{printf "%.4f" .ExitPrice}} | {{printf "%.2f" .PnL}} |
{{- end }}

** Daily Curve
| Date | Trades | P&L | Cumulative |
|------+--------+-----+------------|
{{- range .Curve }}
| {{.Date}} | {{.Trades}} | {{printf "%.2f" .PnL}} | {{printf "%.2f" .Cumulative}} |
{{- end }}

{{- if .Run.Errors }}

** Errors
{{- range .Run.Errors }}
- {{.}}
{{- end }}
{{- end }}
`
