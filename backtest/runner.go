package backtest

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rustyeddy/pead/config"
	"github.com/rustyeddy/pead/data"
	"github.com/rustyeddy/pead/internal/metrics"
	"github.com/rustyeddy/pead/market"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrDataUnavailable marks a symbol whose inputs could not be loaded.
var ErrDataUnavailable = errors.New("data unavailable")

// SymbolResult is the outcome of one symbol. Exactly one of Result and
// Err is set.
type SymbolResult struct {
	Symbol   string
	Result   *Result
	Prices   []market.Bar // session bars the engine ran over
	Err      error
	Duration time.Duration
}

// Runner backtests many symbols in parallel. Only the config is shared
// between symbols, and it is never written.
type Runner struct {
	Config      *config.Config
	Bars        data.MarketDataProvider
	Earnings    data.EarningsProvider
	Predictions data.PredictionProvider
	Logger      *zap.Logger

	// OnDone, if set, is called after each symbol finishes. It may be
	// called from several goroutines at once.
	OnDone func(SymbolResult)
}

// Run backtests symbols and returns their results in input order. A
// failing symbol never stops the others; the returned error is only
// set for an invalid runner or a cancelled context.
func (r *Runner) Run(ctx context.Context, symbols []string) ([]SymbolResult, error) {
	if r.Config == nil {
		return nil, fmt.Errorf("backtest: Config is required")
	}
	if r.Bars == nil || r.Earnings == nil || r.Predictions == nil {
		return nil, fmt.Errorf("backtest: data providers are required")
	}
	if err := r.Config.Validate(); err != nil {
		return nil, fmt.Errorf("backtest: invalid config: %w", err)
	}
	session, err := r.Config.Session.Window()
	if err != nil {
		return nil, fmt.Errorf("backtest: session: %w", err)
	}
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}

	workers := r.Config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]SymbolResult, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			start := time.Now()
			res, prices, err := r.runSymbol(gctx, sym, session, log)
			sr := SymbolResult{Symbol: sym, Result: res, Prices: prices, Err: err, Duration: time.Since(start)}
			metrics.SymbolDuration.Observe(sr.Duration.Seconds())
			if err != nil {
				metrics.SymbolFailures.Inc()
				log.Warn("symbol failed", zap.String("symbol", sym), zap.Error(err))
			}
			results[i] = sr
			if r.OnDone != nil {
				r.OnDone(sr)
			}
			// Symbol failures are reported in results, not through the group.
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (r *Runner) runSymbol(ctx context.Context, symbol string, session market.Window, log *zap.Logger) (*Result, []market.Bar, error) {
	events, err := r.Earnings.Earnings(ctx, symbol, r.Config.Data.MaxEarnings)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w: %w", symbol, ErrDataUnavailable, err)
	}
	preds, err := r.Predictions.Predictions(ctx, symbol)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w: %w", symbol, ErrDataUnavailable, err)
	}
	if len(preds) == 0 {
		return nil, nil, fmt.Errorf("%s: %w: no predictions", symbol, ErrDataUnavailable)
	}
	bars, err := r.Bars.Bars(ctx, symbol, data.ReportDates(events))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w: %w", symbol, ErrDataUnavailable, err)
	}
	bars = market.FilterSession(bars, session)
	if len(bars) == 0 {
		return nil, nil, fmt.Errorf("%s: %w: no bars in session %s", symbol, ErrDataUnavailable, session)
	}
	log.Debug("data loaded",
		zap.String("symbol", symbol),
		zap.Int("bars", len(bars)),
		zap.Int("earnings", len(events)),
		zap.Int("predictions", len(preds)))

	eng, err := NewEngine(symbol, r.Config, events, preds, WithLogger(log))
	if err != nil {
		return nil, nil, err
	}
	res, err := eng.Run(ctx, bars)
	if err != nil {
		return nil, nil, err
	}
	return res, bars, nil
}
