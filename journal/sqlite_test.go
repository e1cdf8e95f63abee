package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "runs", "test.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j, path
}

func recordFixtureRun(t *testing.T, j *SQLite, runID string, created time.Time) {
	t.Helper()

	require.NoError(t, j.RecordRun(context.Background(), Run{
		RunID:   runID,
		Created: created,
		Source:  "csv",
		Symbols: []string{"NVDA", "GS"},
		Config:  []byte("broker:\n  cash: 10000\n"),
	}))
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	_, path := newTestSQLite(t)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	for _, table := range []string{"runs", "trades", "equity", "summaries"} {
		assert.True(t, found[table], table)
	}
}

func TestSQLiteReopen(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	recordFixtureRun(t, j, "run-1", generated)
	require.NoError(t, j.Close())

	again, err := NewSQLite(path)
	require.NoError(t, err)
	defer again.Close()

	run, err := again.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "csv", run.Source)
}

func TestSQLiteRecordRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)
	recordFixtureRun(t, j, "run-1", generated)

	run, err := j.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.RunID)
	assert.True(t, generated.Equal(run.Created))
	assert.Equal(t, []string{"NVDA", "GS"}, run.Symbols)
	assert.Equal(t, "broker:\n  cash: 10000\n", string(run.Config))

	_, err = j.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSQLiteLatestRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	_, err := j.LatestRun(ctx)
	assert.ErrorIs(t, err, ErrRunNotFound)

	recordFixtureRun(t, j, "run-a", generated)
	recordFixtureRun(t, j, "run-b", generated.Add(time.Hour))
	recordFixtureRun(t, j, "run-c", generated.Add(-time.Hour))

	run, err := j.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-b", run.RunID)
}

func TestSQLiteRecordTrade(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)
	recordFixtureRun(t, j, "run-1", generated)

	want := fixtureResult().Trades[0]
	require.NoError(t, j.RecordTrade(ctx, "run-1", want))

	got, err := j.ListTradesByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, want.ID, got[0].ID)
	assert.Equal(t, want.Side, got[0].Side)
	assert.Equal(t, want.Size, got[0].Size)
	assert.Equal(t, want.Reason, got[0].Reason)
	assert.Equal(t, want.BarsHeld, got[0].BarsHeld)
	assert.InDelta(t, want.RealizedPnL, got[0].RealizedPnL, 1e-9)
	assert.True(t, want.EntryTime.Equal(got[0].EntryTime))
	assert.True(t, want.ExitTime.Equal(got[0].ExitTime))

	// the same trade cannot be stored twice in one run
	assert.Error(t, j.RecordTrade(ctx, "run-1", want))
}

func TestSQLiteRecordEquity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)
	recordFixtureRun(t, j, "run-1", generated)

	points := fixtureResult().Equity
	// out of order on purpose
	require.NoError(t, j.RecordEquity(ctx, "run-1", "NVDA", points[1]))
	require.NoError(t, j.RecordEquity(ctx, "run-1", "NVDA", points[0]))
	require.NoError(t, j.RecordEquity(ctx, "run-1", "GS", points[2]))

	got, err := j.ListEquityByRun(ctx, "run-1", "NVDA")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, points[0].Time.Equal(got[0].Time))
	assert.Equal(t, points[0].Value, got[0].Value)
	assert.Equal(t, points[1].Value, got[1].Value)
}

func TestSQLiteRecordResult(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)
	recordFixtureRun(t, j, "run-1", generated)

	res := fixtureResult()
	stats := fixtureStats()
	require.NoError(t, j.RecordResult(ctx, "run-1", res, stats))

	trades, err := j.ListTradesByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "NVDA-0001", trades[0].ID)
	assert.Equal(t, "NVDA-0002", trades[1].ID)

	equity, err := j.ListEquityByRun(ctx, "run-1", "NVDA")
	require.NoError(t, err)
	assert.Len(t, equity, len(res.Equity))

	sums, err := j.ListSummariesByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, SummaryOf("run-1", stats).Trades, sums[0].Trades)
	assert.Equal(t, 1, sums[0].Wins)
	assert.Equal(t, 1, sums[0].Losses)
	assert.InDelta(t, 5.0, sums[0].NetPnL, 1e-9)
	require.NotNil(t, sums[0].Sharpe)
	assert.InDelta(t, *stats.Sharpe, *sums[0].Sharpe, 1e-9)

	// a second write of the same symbol is rolled back as a whole
	assert.Error(t, j.RecordResult(ctx, "run-1", res, stats))
	equity, err = j.ListEquityByRun(ctx, "run-1", "NVDA")
	require.NoError(t, err)
	assert.Len(t, equity, len(res.Equity))
}

func TestSQLiteSummaryNilSharpe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)
	recordFixtureRun(t, j, "run-1", generated)

	require.NoError(t, j.RecordSummary(ctx, Summary{RunID: "run-1", Symbol: "GME", StartCash: 10000, EndCash: 10000}))
	sharpe := 0.5
	require.NoError(t, j.RecordSummary(ctx, Summary{RunID: "run-1", Symbol: "GS", Sharpe: &sharpe}))

	sums, err := j.ListSummariesByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, "GME", sums[0].Symbol)
	assert.Nil(t, sums[0].Sharpe)
	assert.Equal(t, 10000.0, sums[0].StartCash)
	require.NotNil(t, sums[1].Sharpe)
	assert.Equal(t, 0.5, *sums[1].Sharpe)
}
