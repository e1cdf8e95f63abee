package journal

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
	"time"

	"github.com/rustyeddy/pead/analysis"
)

var summaryFuncs = template.FuncMap{
	"pct": func(n, total int) float64 {
		if total == 0 {
			return 0
		}
		return float64(n) / float64(total) * 100.0
	},
	"mul100": func(x float64) float64 { return x * 100.0 },
	"na":     fp,
}

var summaryTemplate = template.Must(template.New("summary").Funcs(summaryFuncs).Parse(SummaryTemplate))

type summaryView struct {
	analysis.Stats
	Generated time.Time
}

func writeSummary(path string, s analysis.Stats, generated time.Time) error {
	buf := new(bytes.Buffer)
	if err := summaryTemplate.Execute(buf, summaryView{Stats: s, Generated: generated}); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

const SummaryTemplate = `Backtest Results Summary
======================

Symbol: {{.Symbol}}
Generated on: {{.Generated.Format "2006-01-02 15:04:05"}}

Sharpe Ratio: {{na .Sharpe}}
Max Drawdown: {{printf "%.2f" (mul100 .MaxDrawdown)}}%

Total Trades: {{.Total}}
Won Trades: {{.Won}} ({{printf "%.2f" (pct .Won .Total)}}%)
Lost Trades: {{.Lost}} ({{printf "%.2f" (pct .Lost .Total)}}%)

Gross PnL: {{printf "%.2f" .GrossPnL}}
Net PnL: {{printf "%.2f" .NetPnL}}
Commission: {{printf "%.2f" .Commission}}

Starting Cash: {{printf "%.2f" .StartingCash}}
Final Cash: {{printf "%.2f" .FinalCash}}

Current Win Streak: {{.WonStreak.Current}}
Longest Win Streak: {{.WonStreak.Longest}}
Current Loss Streak: {{.LostStreak.Current}}
Longest Loss Streak: {{.LostStreak.Longest}}
`
