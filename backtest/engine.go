package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/pead/config"
	"github.com/rustyeddy/pead/internal/metrics"
	"github.com/rustyeddy/pead/market"
	"github.com/rustyeddy/pead/strategies"
	"go.uber.org/zap"
)

// EquityPoint is the account value marked at a bar close.
type EquityPoint struct {
	Time  time.Time
	Value float64
}

// TradeRecord is one closed position.
type TradeRecord struct {
	ID          string
	Symbol      string
	Side        market.Side
	EntryTime   time.Time
	ExitTime    time.Time
	EntryPrice  float64
	ExitPrice   float64
	Size        int64
	BarsHeld    int
	Reason      strategies.ExitReason
	Surprise    float64 // blended score at entry
	GrossPnL    float64
	Commission  float64
	RealizedPnL float64 // net of commission
}

// Won reports whether the trade made money after costs.
func (t TradeRecord) Won() bool { return t.RealizedPnL > 0 }

// SkippedEntry is an entry that was evaluated but not opened.
type SkippedEntry struct {
	Time   time.Time
	Price  float64
	Side   market.Side
	Reason strategies.SkipReason
}

// Result is everything a single-symbol run produced.
type Result struct {
	Symbol       string
	StartingCash float64
	FinalCash    float64
	Bars         int
	Opened       int
	Trades       []TradeRecord
	Equity       []EquityPoint
	Skipped      []SkippedEntry
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for entries, exits and skips.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// Engine replays one symbol's bars through the earnings-drift machine
// and keeps the books.
type Engine struct {
	symbol string
	params strategies.Params
	broker config.BrokerConfig
	events []market.EarningsEvent
	preds  []market.SurprisePrediction
	log    *zap.Logger
}

// NewEngine validates cfg and prepares a run for symbol.
func NewEngine(symbol string, cfg *config.Config, events []market.EarningsEvent,
	preds []market.SurprisePrediction, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("backtest: config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("backtest: invalid config: %w", err)
	}
	params, err := strategies.ParamsFromConfig(cfg.Strategy)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}

	e := &Engine{
		symbol: symbol,
		params: params,
		broker: cfg.Broker,
		events: events,
		preds:  preds,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With(zap.String("symbol", symbol))
	return e, nil
}

// Run processes bars in order. Bars must be strictly increasing in time.
// Each Run starts from a fresh account and machine, so repeated runs over
// the same bars produce identical results.
func (e *Engine) Run(ctx context.Context, bars []market.Bar) (*Result, error) {
	if err := market.ValidateBars(bars); err != nil {
		return nil, fmt.Errorf("backtest %s: %w", e.symbol, err)
	}

	machine := strategies.NewEarningsDrift(e.params, e.events, e.preds)
	ledger := NewLedger(e.broker.StartingCash, e.broker.CommissionRate)
	res := &Result{
		Symbol:       e.symbol,
		StartingCash: e.broker.StartingCash,
		Bars:         len(bars),
	}

	var (
		entryFee float64
		entryScr float64
	)

	for _, b := range bars {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		act := machine.OnBar(b)
		switch act.Kind {
		case strategies.Open:
			entryFee = ledger.Open(act.Side, act.Size, act.Price)
			entryScr = act.Score.Blended
			res.Opened++
			e.log.Info("entry",
				zap.Time("time", b.Time),
				zap.Stringer("side", act.Side),
				zap.Int64("size", act.Size),
				zap.Float64("price", act.Price),
				zap.Float64("surprise", act.Score.Blended))

		case strategies.Close:
			exitFee := ledger.Close(act.Side, act.Size, act.Price)
			tr := e.record(len(res.Trades)+1, act, b.Time, entryScr, entryFee+exitFee)
			res.Trades = append(res.Trades, tr)
			metrics.TradesTotal.WithLabelValues(tr.Side.String(), string(tr.Reason)).Inc()
			e.log.Info("exit",
				zap.Time("time", b.Time),
				zap.String("reason", string(tr.Reason)),
				zap.Float64("price", tr.ExitPrice),
				zap.Int("bars_held", tr.BarsHeld),
				zap.Float64("pnl", tr.RealizedPnL))
			res.Equity = append(res.Equity, EquityPoint{Time: b.Time, Value: ledger.Cash()})
			continue

		case strategies.Skip:
			res.Skipped = append(res.Skipped, SkippedEntry{
				Time:   b.Time,
				Price:  act.Price,
				Side:   act.Side,
				Reason: act.Skip,
			})
			metrics.EntriesSkipped.WithLabelValues(string(act.Skip)).Inc()
			if act.Skip == strategies.SkipSignalUndefined {
				e.log.Debug("signal undefined", zap.Time("time", b.Time), zap.Error(act.Err))
			} else {
				e.log.Info("entry skipped", zap.Time("time", b.Time),
					zap.String("reason", string(act.Skip)), zap.Float64("price", act.Price))
			}
		}

		if pos, open := machine.Position(); open {
			res.Equity = append(res.Equity, EquityPoint{
				Time:  b.Time,
				Value: ledger.Equity(pos.Side, pos.Size, b.Close),
			})
		}
	}

	// A position still open when the data ends is closed at the last bar.
	if len(bars) > 0 {
		last := bars[len(bars)-1]
		if act, ok := machine.ForceClose(last); ok {
			exitFee := ledger.Close(act.Side, act.Size, act.Price)
			tr := e.record(len(res.Trades)+1, act, last.Time, entryScr, entryFee+exitFee)
			res.Trades = append(res.Trades, tr)
			metrics.TradesTotal.WithLabelValues(tr.Side.String(), string(tr.Reason)).Inc()
			e.log.Info("exit at end of data",
				zap.Time("time", last.Time),
				zap.Float64("price", tr.ExitPrice),
				zap.Float64("pnl", tr.RealizedPnL))
			res.Equity[len(res.Equity)-1].Value = ledger.Cash()
		}
	}

	res.FinalCash = ledger.Cash()
	metrics.BarsProcessed.WithLabelValues(e.symbol).Add(float64(len(bars)))
	return res, nil
}

func (e *Engine) record(n int, act strategies.Action, exit time.Time, surprise, fees float64) TradeRecord {
	p := act.Position
	gross := p.Side.Sign() * (act.Price - p.EntryPrice) * float64(p.Size)
	return TradeRecord{
		ID:          fmt.Sprintf("%s-%04d", e.symbol, n),
		Symbol:      e.symbol,
		Side:        p.Side,
		EntryTime:   p.EntryTime,
		ExitTime:    exit,
		EntryPrice:  p.EntryPrice,
		ExitPrice:   act.Price,
		Size:        p.Size,
		BarsHeld:    p.BarsHeld,
		Reason:      act.Reason,
		Surprise:    surprise,
		GrossPnL:    gross,
		Commission:  fees,
		RealizedPnL: gross - fees,
	}
}
