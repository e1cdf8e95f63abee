package data

import (
	"context"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rustyeddy/pead/market"
	"github.com/shopspring/decimal"
)

// Schema creates the tables read by Postgres.
const Schema = `
CREATE TABLE IF NOT EXISTS bars (
	symbol TEXT NOT NULL,
	ts     TIMESTAMP NOT NULL, -- exchange wall clock
	open   NUMERIC NOT NULL,
	high   NUMERIC NOT NULL,
	low    NUMERIC NOT NULL,
	close  NUMERIC NOT NULL,
	volume NUMERIC NOT NULL DEFAULT 0,
	PRIMARY KEY (symbol, ts)
);

CREATE TABLE IF NOT EXISTS earnings (
	symbol       TEXT NOT NULL,
	report_date  DATE NOT NULL,
	eps_estimate NUMERIC,
	reported_eps NUMERIC,
	PRIMARY KEY (symbol, report_date)
);

CREATE TABLE IF NOT EXISTS predictions (
	symbol        TEXT NOT NULL,
	earnings_date DATE NOT NULL,
	predicted_eps NUMERIC NOT NULL
);
`

const (
	barsQuery = `SELECT ts, open, high, low, close, volume FROM bars
WHERE symbol = $1 AND ts >= $2 AND ts < $3 ORDER BY ts`

	earningsQuery = `SELECT report_date, eps_estimate, reported_eps FROM earnings
WHERE symbol = $1 AND report_date <= $2
  AND eps_estimate IS NOT NULL AND reported_eps IS NOT NULL
ORDER BY report_date DESC LIMIT $3`

	predictionsQuery = `SELECT earnings_date, predicted_eps FROM predictions
WHERE symbol = $1 ORDER BY earnings_date`
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres serves bars, earnings and predictions from one database.
// NUMERIC columns are decoded through shopspring decimal.
type Postgres struct {
	q    querier
	pool *pgxpool.Pool

	// Now is the cut-off for future earnings. Defaults to time.Now.
	Now func() time.Time
}

// NewPostgres connects to dbURL and verifies the connection.
func NewPostgres(ctx context.Context, dbURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{q: pool, pool: pool}, nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.q.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Bars returns the symbol's bars inside the fetch window of every report
// date, sorted with duplicates removed. The ts column holds exchange wall
// clock, so each UTC window is converted to Exchange time first.
func (p *Postgres) Bars(ctx context.Context, symbol string, reportDates []time.Time) ([]market.Bar, error) {
	var bars []market.Bar
	for _, utc := range FetchWindows(reportDates, FetchEnd, FetchDuration) {
		w := utc.WallClock(Exchange)
		rows, err := p.q.Query(ctx, barsQuery, symbol, w.Start, w.End)
		if err != nil {
			return nil, fmt.Errorf("query bars %s: %w", symbol, err)
		}
		for rows.Next() {
			var (
				ts            time.Time
				o, h, l, c, v decimal.Decimal
			)
			if err := rows.Scan(&ts, &o, &h, &l, &c, &v); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan bar %s: %w", symbol, err)
			}
			bars = append(bars, market.Bar{
				Time:   ts,
				Open:   o.InexactFloat64(),
				High:   h.InexactFloat64(),
				Low:    l.InexactFloat64(),
				Close:  c.InexactFloat64(),
				Volume: v.InexactFloat64(),
			})
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("read bars %s: %w", symbol, err)
		}
	}

	bars = sortBars(bars)
	if len(bars) == 0 {
		return nil, fmt.Errorf("bars %s: %w", symbol, ErrNoData)
	}
	return bars, nil
}

// Earnings returns the newest lookback events on or before today, oldest
// first.
func (p *Postgres) Earnings(ctx context.Context, symbol string, lookback int) ([]market.EarningsEvent, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	today := market.DateOf(now().UTC())

	rows, err := p.q.Query(ctx, earningsQuery, symbol, today, lookback)
	if err != nil {
		return nil, fmt.Errorf("query earnings %s: %w", symbol, err)
	}
	defer rows.Close()

	var events []market.EarningsEvent
	for rows.Next() {
		var (
			date     time.Time
			est, rep decimal.Decimal
		)
		if err := rows.Scan(&date, &est, &rep); err != nil {
			return nil, fmt.Errorf("scan earnings %s: %w", symbol, err)
		}
		events = append(events, market.EarningsEvent{
			ReportDate:  market.DateOf(date),
			EPSEstimate: est.InexactFloat64(),
			ReportedEPS: rep.InexactFloat64(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read earnings %s: %w", symbol, err)
	}

	events = newestEvents(events, today, lookback)
	if len(events) == 0 {
		return nil, fmt.Errorf("earnings %s: %w", symbol, ErrNoData)
	}
	return events, nil
}

// Predictions returns the symbol's forecasts ordered by earnings date.
func (p *Postgres) Predictions(ctx context.Context, symbol string) ([]market.SurprisePrediction, error) {
	rows, err := p.q.Query(ctx, predictionsQuery, symbol)
	if err != nil {
		return nil, fmt.Errorf("query predictions %s: %w", symbol, err)
	}
	defer rows.Close()

	var out []market.SurprisePrediction
	for rows.Next() {
		var (
			date time.Time
			eps  decimal.Decimal
		)
		if err := rows.Scan(&date, &eps); err != nil {
			return nil, fmt.Errorf("scan prediction %s: %w", symbol, err)
		}
		out = append(out, market.SurprisePrediction{
			Symbol:       symbol,
			EarningsDate: market.DateOf(date),
			PredictedEPS: eps.InexactFloat64(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read predictions %s: %w", symbol, err)
	}
	return out, nil
}
