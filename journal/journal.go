// Package journal persists backtest results as per-symbol CSV artifacts
// and in a SQLite run history.
package journal

import (
	"context"
	"time"

	"github.com/rustyeddy/pead/analysis"
	"github.com/rustyeddy/pead/backtest"
)

// Run is one invocation of the backtester over a set of symbols.
type Run struct {
	RunID   string
	Created time.Time
	Source  string // data source, csv or postgres
	Symbols []string
	Config  []byte // resolved config as YAML
}

// Summary is the stored form of analysis.Stats for one symbol of a run.
type Summary struct {
	RunID       string
	Symbol      string
	Trades      int
	Wins        int
	Losses      int
	WinRate     float64
	GrossPnL    float64
	NetPnL      float64
	Sharpe      *float64
	MaxDrawdown float64
	StartCash   float64
	EndCash     float64
}

// SummaryOf converts stats for storage.
func SummaryOf(runID string, s analysis.Stats) Summary {
	return Summary{
		RunID:       runID,
		Symbol:      s.Symbol,
		Trades:      s.Total,
		Wins:        s.Won,
		Losses:      s.Lost,
		WinRate:     s.WinRate,
		GrossPnL:    s.GrossPnL,
		NetPnL:      s.NetPnL,
		Sharpe:      s.Sharpe,
		MaxDrawdown: s.MaxDrawdown,
		StartCash:   s.StartingCash,
		EndCash:     s.FinalCash,
	}
}

// Journal records runs and their per-symbol results.
type Journal interface {
	RecordRun(ctx context.Context, r Run) error
	RecordTrade(ctx context.Context, runID string, t backtest.TradeRecord) error
	RecordEquity(ctx context.Context, runID, symbol string, p backtest.EquityPoint) error
	RecordSummary(ctx context.Context, s Summary) error
	Close() error
}
