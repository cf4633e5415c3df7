package journal

import (
	"io"
	"iter"
	"math"
	"text/template"
	"time"
)

// Report summarises realized results from a history pass.
type Report struct {
	Start time.Time
	End   time.Time

	Opens  int
	Trades int // closes
	Wins   int
	Losses int

	StartBalance float64
	EndBalance   float64
	GrossProfit  float64
	GrossLoss    float64 // positive
	NetPL        float64
	ReturnPct    float64
	WinRate      float64
	ProfitFactor float64
	MaxDDPct     float64
}

// Summarize consumes entries once. Profit figures are in account currency.
func Summarize(entries iter.Seq[HistoryEntry]) Report {
	var (
		r     Report
		first = true
		peak  float64
	)

	for e := range entries {
		if first {
			r.Start = e.Time
			r.StartBalance = e.Balance - e.GainLossAccount
			peak = r.StartBalance
			first = false
		}
		r.End = e.Time
		r.EndBalance = e.Balance

		if !e.IsClose() {
			r.Opens++
			continue
		}

		r.Trades++
		switch pl := e.GainLossAccount; {
		case pl > 0:
			r.Wins++
			r.GrossProfit += pl
		case pl < 0:
			r.Losses++
			r.GrossLoss -= pl
		}

		if e.Balance > peak {
			peak = e.Balance
		}
		if peak > 0 {
			dd := (peak - e.Balance) / peak * 100
			r.MaxDDPct = math.Max(r.MaxDDPct, dd)
		}
	}

	r.NetPL = r.GrossProfit - r.GrossLoss
	if r.StartBalance != 0 {
		r.ReturnPct = r.NetPL / r.StartBalance * 100
	}
	if r.Trades > 0 {
		r.WinRate = float64(r.Wins) / float64(r.Trades)
	}
	if r.GrossLoss > 0 {
		r.ProfitFactor = r.GrossProfit / r.GrossLoss
	}
	return r
}

var reportOrgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
}

var reportOrg = template.Must(template.New("report").Funcs(reportOrgFuncs).Parse(ReportOrgTemplate))

// WriteOrg renders the report as an Org-mode section.
func (r Report) WriteOrg(w io.Writer) error {
	return reportOrg.Execute(w, r)
}

const ReportOrgTemplate = `* SESSION {{.Start.Format "2006-01-02 15:04"}} → {{.End.Format "2006-01-02 15:04"}}
:PROPERTIES:
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDDPct}}
:OPENS:       {{.Opens}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{printf "%.2f" (mul100 .WinRate)}}
:PROFIT_FAC:  {{if ne .ProfitFactor 0.0}}{{printf "%.2f" .ProfitFactor}}{{else}}n/a{{end}}
:END:

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Trades}} |
`
