package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rustyeddy/pead/backtest"
	"github.com/rustyeddy/pead/market"
	"github.com/rustyeddy/pead/strategies"
)

// ErrRunNotFound is returned when no run matches.
var ErrRunNotFound = errors.New("run not found")

const selectRun = `SELECT run_id, created, source, symbols, config FROM runs`

// GetRun returns a single run by ID.
func (j *SQLite) GetRun(ctx context.Context, runID string) (Run, error) {
	return scanRun(j.db.QueryRowContext(ctx, selectRun+` WHERE run_id = ?`, runID), runID)
}

// LatestRun returns the most recently created run. Run IDs are ULIDs, so
// the largest ID breaks ties within the same instant.
func (j *SQLite) LatestRun(ctx context.Context) (Run, error) {
	return scanRun(j.db.QueryRowContext(ctx, selectRun+` ORDER BY created DESC, run_id DESC LIMIT 1`), "latest")
}

func scanRun(row *sql.Row, label string) (Run, error) {
	var (
		r       Run
		symbols string
	)
	if err := row.Scan(&r.RunID, &r.Created, &r.Source, &symbols, &r.Config); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, fmt.Errorf("%w: %q", ErrRunNotFound, label)
		}
		return Run{}, err
	}
	if symbols != "" {
		r.Symbols = strings.Split(symbols, ",")
	}
	return r, nil
}

// ListTradesByRun returns the trades of a run ordered by symbol and close
// time.
func (j *SQLite) ListTradesByRun(ctx context.Context, runID string) ([]backtest.TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT trade_id, symbol, side, size, entry_price, exit_price, open_time, close_time,
		       bars_held, surprise, gross_pl, commission, realized_pl, reason
		FROM trades
		WHERE run_id = ?
		ORDER BY symbol ASC, close_time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []backtest.TradeRecord
	for rows.Next() {
		var (
			rec    backtest.TradeRecord
			side   int
			reason string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Symbol,
			&side,
			&rec.Size,
			&rec.EntryPrice,
			&rec.ExitPrice,
			&rec.EntryTime,
			&rec.ExitTime,
			&rec.BarsHeld,
			&rec.Surprise,
			&rec.GrossPnL,
			&rec.Commission,
			&rec.RealizedPnL,
			&reason,
		); err != nil {
			return nil, err
		}
		rec.Side = market.Side(side)
		rec.Reason = strategies.ExitReason(reason)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityByRun returns a symbol's equity curve for a run.
func (j *SQLite) ListEquityByRun(ctx context.Context, runID, symbol string) ([]backtest.EquityPoint, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT time, equity FROM equity
		WHERE run_id = ? AND symbol = ?
		ORDER BY time ASC`, runID, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []backtest.EquityPoint
	for rows.Next() {
		var p backtest.EquityPoint
		if err := rows.Scan(&p.Time, &p.Value); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSummariesByRun returns the per-symbol summaries of a run ordered by
// symbol.
func (j *SQLite) ListSummariesByRun(ctx context.Context, runID string) ([]Summary, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, symbol, trades, wins, losses, win_rate, gross_pl, net_pl, sharpe, max_dd,
		       start_cash, end_cash
		FROM summaries
		WHERE run_id = ?
		ORDER BY symbol ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			s      Summary
			sharpe sql.NullFloat64
		)
		if err := rows.Scan(
			&s.RunID,
			&s.Symbol,
			&s.Trades,
			&s.Wins,
			&s.Losses,
			&s.WinRate,
			&s.GrossPnL,
			&s.NetPnL,
			&sharpe,
			&s.MaxDrawdown,
			&s.StartCash,
			&s.EndCash,
		); err != nil {
			return nil, err
		}
		if sharpe.Valid {
			v := sharpe.Float64
			s.Sharpe = &v
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
