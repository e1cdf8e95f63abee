package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rustyeddy/pead/analysis"
	"github.com/rustyeddy/pead/backtest"
	"github.com/rustyeddy/pead/market"
	"github.com/rustyeddy/pead/strategies"
)

// Artifact file names inside a symbol's results directory.
const (
	TradeEntriesFile  = "trade_entries.csv"
	TradeAnalysisFile = "trade_analysis.csv"
	TradeOutcomesFile = "trade_outcomes.csv"
	PnLFile           = "pnl_data.csv"
	StreaksFile       = "streaks_data.csv"
	TradeLengthFile   = "trade_length_data.csv"
	EquityCurveFile   = "equity_curve.csv"
	PriceHistoryFile  = "price_history.csv"
	SummaryFile       = "summary.txt"
)

const csvTime = "2006-01-02 15:04:05"

// ResultsDir is where a symbol's artifacts are written under base.
func ResultsDir(base, symbol string) string {
	return filepath.Join(base, symbol, symbol+"_backtest_results")
}

type table struct {
	name   string
	header []string
	rows   [][]string
}

// Writer writes the per-symbol CSV artifacts and summary.
type Writer struct {
	Base string

	// Now stamps the summary. Defaults to time.Now.
	Now func() time.Time
}

// Write creates the symbol's results directory and every artifact in it.
// It returns the directory.
func (w Writer) Write(res *backtest.Result, stats analysis.Stats, prices []market.Bar) (string, error) {
	dir := ResultsDir(w.Base, res.Symbol)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}

	tables := []table{
		{TradeEntriesFile, []string{"datetime", "price", "signal", "closed"}, entryRows(res.Trades)},
		{TradeAnalysisFile, []string{"Metric", "Value"}, analysisRows(stats)},
		{TradeOutcomesFile, []string{"Outcome", "Count"}, [][]string{
			{"Won", strconv.Itoa(stats.Won)},
			{"Lost", strconv.Itoa(stats.Lost)},
		}},
		{PnLFile, []string{"Type", "Value"}, [][]string{
			{"Gross PnL", f(stats.GrossPnL)},
			{"Net PnL", f(stats.NetPnL)},
		}},
		{StreaksFile, []string{"Streak Type", "Value"}, [][]string{
			{"Won (Current)", strconv.Itoa(stats.WonStreak.Current)},
			{"Won (Longest)", strconv.Itoa(stats.WonStreak.Longest)},
			{"Lost (Current)", strconv.Itoa(stats.LostStreak.Current)},
			{"Lost (Longest)", strconv.Itoa(stats.LostStreak.Longest)},
		}},
		{EquityCurveFile, []string{"Timestamp", "Time", "Value"}, equityRows(res.Equity)},
		{PriceHistoryFile, []string{"datetime", "open", "high", "low", "close", "volume"}, priceRows(prices)},
	}
	if stats.Total > 0 {
		tables = append(tables, table{TradeLengthFile, []string{"Metric", "Value"}, [][]string{
			{"Average Trade Length", f(stats.AvgLength)},
			{"Max Trade Length", strconv.Itoa(stats.MaxLength)},
		}})
	}

	for _, t := range tables {
		if err := writeTable(filepath.Join(dir, t.name), t.header, t.rows); err != nil {
			return "", err
		}
	}

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	if err := writeSummary(filepath.Join(dir, SummaryFile), stats, now()); err != nil {
		return "", err
	}
	return dir, nil
}

func writeTable(path string, header []string, rows [][]string) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(fh)
	if err := w.Write(header); err != nil {
		fh.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		fh.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return fh.Close()
}

func signal(s market.Side) string {
	if s == market.Short {
		return "SELL"
	}
	return "BUY"
}

func closedLabel(r strategies.ExitReason) string {
	switch r {
	case strategies.TakeProfit:
		return "TOOK PROFIT"
	case strategies.StopLoss:
		return "STOPPED OUT"
	default:
		return "EXITED"
	}
}

// entryRows lists an OPENED row and a closing row per trade.
func entryRows(trades []backtest.TradeRecord) [][]string {
	rows := make([][]string, 0, 2*len(trades))
	for _, t := range trades {
		sig := signal(t.Side)
		rows = append(rows,
			[]string{t.EntryTime.Format(csvTime), f(t.EntryPrice), sig, "OPENED"},
			[]string{t.ExitTime.Format(csvTime), f(t.ExitPrice), sig, closedLabel(t.Reason)},
		)
	}
	return rows
}

// analysisRows flattens stats under dotted metric names.
func analysisRows(s analysis.Stats) [][]string {
	return [][]string{
		{"total.total", strconv.Itoa(s.Total)},
		{"won.total", strconv.Itoa(s.Won)},
		{"lost.total", strconv.Itoa(s.Lost)},
		{"pnl.gross.total", f(s.GrossPnL)},
		{"pnl.net.total", f(s.NetPnL)},
		{"streak.won.current", strconv.Itoa(s.WonStreak.Current)},
		{"streak.won.longest", strconv.Itoa(s.WonStreak.Longest)},
		{"streak.lost.current", strconv.Itoa(s.LostStreak.Current)},
		{"streak.lost.longest", strconv.Itoa(s.LostStreak.Longest)},
		{"len.average", f(s.AvgLength)},
		{"len.max", strconv.Itoa(s.MaxLength)},
		{"sharpe", fp(s.Sharpe)},
		{"drawdown.max", f(s.MaxDrawdown)},
	}
}

func equityRows(curve []backtest.EquityPoint) [][]string {
	rows := make([][]string, len(curve))
	for i, p := range curve {
		rows[i] = []string{strconv.Itoa(i), p.Time.Format(csvTime), f(p.Value)}
	}
	return rows
}

func priceRows(bars []market.Bar) [][]string {
	rows := make([][]string, len(bars))
	for i, b := range bars {
		rows[i] = []string{b.Time.Format(csvTime), f(b.Open), f(b.High), f(b.Low), f(b.Close), f(b.Volume)}
	}
	return rows
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

// fp renders an optional statistic, "n/a" when undefined.
func fp(x *float64) string {
	if x == nil {
		return "n/a"
	}
	return f(*x)
}
