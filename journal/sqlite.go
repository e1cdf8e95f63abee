package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/pead/analysis"
	"github.com/rustyeddy/pead/backtest"
)

type SQLite struct {
	db *sql.DB
}

var _ Journal = (*SQLite)(nil)

// NewSQLite opens (creating if needed) the database at path and applies
// the schema.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

const (
	insertTrade = `
		INSERT INTO trades
		(trade_id, run_id, symbol, side, size, entry_price, exit_price, open_time, close_time,
		 bars_held, surprise, gross_pl, commission, realized_pl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertEquity = `INSERT INTO equity (run_id, symbol, time, equity) VALUES (?, ?, ?, ?)`

	insertSummary = `
		INSERT INTO summaries
		(run_id, symbol, trades, wins, losses, win_rate, gross_pl, net_pl, sharpe, max_dd, start_cash, end_cash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (j *SQLite) RecordRun(ctx context.Context, r Run) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, created, source, symbols, config)
		VALUES (?, ?, ?, ?, ?)`,
		r.RunID, r.Created.UTC(), r.Source, strings.Join(r.Symbols, ","), r.Config,
	)
	return err
}

func (j *SQLite) RecordTrade(ctx context.Context, runID string, t backtest.TradeRecord) error {
	return recordTrade(ctx, j.db, runID, t)
}

func (j *SQLite) RecordEquity(ctx context.Context, runID, symbol string, p backtest.EquityPoint) error {
	_, err := j.db.ExecContext(ctx, insertEquity, runID, symbol, p.Time, p.Value)
	return err
}

func (j *SQLite) RecordSummary(ctx context.Context, s Summary) error {
	return recordSummary(ctx, j.db, s)
}

// RecordResult stores one symbol's trades, equity curve and summary in a
// single transaction.
func (j *SQLite) RecordResult(ctx context.Context, runID string, res *backtest.Result, stats analysis.Stats) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range res.Trades {
		if err := recordTrade(ctx, tx, runID, t); err != nil {
			return fmt.Errorf("record trade %s: %w", t.ID, err)
		}
	}
	stmt, err := tx.PrepareContext(ctx, insertEquity)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, p := range res.Equity {
		if _, err := stmt.ExecContext(ctx, runID, res.Symbol, p.Time, p.Value); err != nil {
			return fmt.Errorf("record equity: %w", err)
		}
	}
	if err := recordSummary(ctx, tx, SummaryOf(runID, stats)); err != nil {
		return fmt.Errorf("record summary: %w", err)
	}
	return tx.Commit()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func recordTrade(ctx context.Context, db execer, runID string, t backtest.TradeRecord) error {
	_, err := db.ExecContext(ctx, insertTrade,
		t.ID, runID, t.Symbol, int(t.Side), t.Size, t.EntryPrice, t.ExitPrice,
		t.EntryTime, t.ExitTime, t.BarsHeld, t.Surprise, t.GrossPnL, t.Commission,
		t.RealizedPnL, string(t.Reason),
	)
	return err
}

func recordSummary(ctx context.Context, db execer, s Summary) error {
	_, err := db.ExecContext(ctx, insertSummary,
		s.RunID, s.Symbol, s.Trades, s.Wins, s.Losses, s.WinRate, s.GrossPnL, s.NetPnL,
		nullFloat(s.Sharpe), s.MaxDrawdown, s.StartCash, s.EndCash,
	)
	return err
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
