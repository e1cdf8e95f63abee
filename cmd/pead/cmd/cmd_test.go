package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rustyeddy/pead/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

// The commands share package-level flag state, so these tests run
// sequentially.

func TestBacktestAndReport(t *testing.T) {
	data := t.TempDir()
	writeFile(t, data, "NVDA_Earnings_Data(5M).csv", `,ReqId,ticker,date,Open,High,Low,Close,Volume
0,1,NVDA,20240522 16:05:00 US/Eastern,50,50.1,49.9,50,1000
1,1,NVDA,20240522 16:10:00 US/Eastern,50,50.3,50,50.2,1100
2,1,NVDA,20240522 16:15:00 US/Eastern,50.2,51.1,50.2,51,1500
`)
	writeFile(t, data, "NVDA_earnings.csv", `Earnings Date,EPS Estimate,Reported EPS,Surprise(%)
2024-05-22 16:00:00-04:00,5.0,6.0,20
`)
	writeFile(t, data, "regression_predictions_new.csv", `Symbol,Earnings_Date,Predicted_EPS
NVDA,2024-05-22,5.5
`)

	results := t.TempDir()
	db := filepath.Join(results, "history.sqlite")
	err := execute(t, "backtest",
		"--data-dir", data,
		"--results", results,
		"--db", db,
		"--symbols", "nvda,GME",
		"--workers", "1",
		"--metrics-file", filepath.Join(results, "pead.prom"),
		"--no-progress",
		"--log-level", "warn",
	)
	require.NoError(t, err)

	dir := journal.ResultsDir(results, "NVDA")
	for _, name := range []string{journal.TradeEntriesFile, journal.SummaryFile, journal.EquityCurveFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	_, err = os.Stat(journal.ResultsDir(results, "GME"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(results, "comparison", journal.ComparisonFile))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(results, "pead.prom"))
	assert.NoError(t, err)

	hist, err := journal.NewSQLite(db)
	require.NoError(t, err)
	defer hist.Close()

	run, err := hist.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA", "GME"}, run.Symbols)

	trades, err := hist.ListTradesByRun(context.Background(), run.RunID)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "NVDA-0001", trades[0].ID)
	assert.Equal(t, int64(20), trades[0].Size)
	assert.True(t, trades[0].Won())

	require.NoError(t, execute(t, "report", "--db", db, "--trades"))
	require.NoError(t, execute(t, "report", "--db", db, "--run", run.RunID))
	assert.Error(t, execute(t, "report", "--db", db, "--run", "missing"))
}

func TestConfigInitValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pead.yaml")

	require.NoError(t, execute(t, "config", "init", "-o", path))
	require.NoError(t, execute(t, "config", "validate", "-f", path))

	writeFile(t, filepath.Dir(path), "bad.yaml", "strategy:\n  take_profit: -1\n")
	assert.Error(t, execute(t, "config", "validate", "-f", filepath.Join(filepath.Dir(path), "bad.yaml")))
}
