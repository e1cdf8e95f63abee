// Package analysis derives summary statistics from a completed backtest.
package analysis

import (
	"math"

	"github.com/rustyeddy/pead/backtest"
	"github.com/rustyeddy/pead/config"
	"github.com/rustyeddy/pead/market"
)

// Options controls the risk-adjusted statistics.
type Options struct {
	RiskFreeRate        float64 // annual
	AnnualizationFactor float64 // periods per year, 252 for trading days
}

// DefaultOptions mirrors config.Default().Analysis.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default().Analysis)
}

// OptionsFromConfig converts the analysis section of the config.
func OptionsFromConfig(c config.AnalysisConfig) Options {
	return Options{RiskFreeRate: c.RiskFreeRate, AnnualizationFactor: c.AnnualizationFactor}
}

// Streak is a run of consecutive trades with the same outcome.
type Streak struct {
	Current int
	Longest int
}

// Stats summarizes one symbol's run.
type Stats struct {
	Symbol string

	Total   int
	Won     int
	Lost    int
	WinRate float64 // Won/Total, 0 with no trades

	GrossPnL   float64
	NetPnL     float64
	Commission float64

	WonStreak  Streak
	LostStreak Streak

	AvgLength float64 // bars held
	MaxLength int

	// Sharpe is nil when it cannot be computed.
	Sharpe      *float64
	MaxDrawdown float64 // fraction of the peak

	StartingCash float64
	FinalCash    float64
}

// Analyze computes Stats for res.
func Analyze(res *backtest.Result, opts Options) Stats {
	s := Stats{
		Symbol:       res.Symbol,
		StartingCash: res.StartingCash,
		FinalCash:    res.FinalCash,
	}

	s.Total = len(res.Trades)
	totalBars := 0
	for _, tr := range res.Trades {
		if tr.Won() {
			s.Won++
		} else {
			s.Lost++
		}
		s.GrossPnL += tr.GrossPnL
		s.NetPnL += tr.RealizedPnL
		s.Commission += tr.Commission
		totalBars += tr.BarsHeld
		if tr.BarsHeld > s.MaxLength {
			s.MaxLength = tr.BarsHeld
		}
	}
	if s.Total > 0 {
		s.WinRate = float64(s.Won) / float64(s.Total)
		s.AvgLength = float64(totalBars) / float64(s.Total)
	}

	s.WonStreak, s.LostStreak = Streaks(res.Trades)
	s.Sharpe = Sharpe(DailyEquity(res.Equity), res.StartingCash, opts)
	s.MaxDrawdown = MaxDrawdown(res.Equity, res.StartingCash)
	return s
}

// Streaks scans trades in order and returns the winning and losing runs.
func Streaks(trades []backtest.TradeRecord) (won, lost Streak) {
	for _, tr := range trades {
		if tr.Won() {
			won.Current++
			lost.Current = 0
		} else {
			lost.Current++
			won.Current = 0
		}
		won.Longest = max(won.Longest, won.Current)
		lost.Longest = max(lost.Longest, lost.Current)
	}
	return won, lost
}

// DailyEquity returns the last equity value of each calendar date in
// curve, in order.
func DailyEquity(curve []backtest.EquityPoint) []backtest.EquityPoint {
	var out []backtest.EquityPoint
	for _, p := range curve {
		if n := len(out); n > 0 && market.SameDate(out[n-1].Time, p.Time) {
			out[n-1] = p
			continue
		}
		out = append(out, backtest.EquityPoint{Time: p.Time, Value: p.Value})
	}
	return out
}

// Sharpe returns the annualized Sharpe ratio of the day-end series. The
// first day's return is measured from startingCash. The mean excess
// return is divided by the population standard deviation. Nil with
// fewer than two days or zero variance.
func Sharpe(daily []backtest.EquityPoint, startingCash float64, opts Options) *float64 {
	if len(daily) < 2 || opts.AnnualizationFactor <= 0 {
		return nil
	}
	rf := math.Pow(1+opts.RiskFreeRate, 1/opts.AnnualizationFactor) - 1

	prev := startingCash
	excess := make([]float64, 0, len(daily))
	for _, p := range daily {
		if prev == 0 {
			return nil
		}
		excess = append(excess, p.Value/prev-1-rf)
		prev = p.Value
	}

	mean := 0.0
	for _, r := range excess {
		mean += r
	}
	mean /= float64(len(excess))

	variance := 0.0
	for _, r := range excess {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(excess))
	std := math.Sqrt(variance)
	if std < 1e-12 {
		return nil
	}

	v := mean / std * math.Sqrt(opts.AnnualizationFactor)
	return &v
}

// MaxDrawdown returns the largest peak-to-trough decline as a fraction of
// the peak. The peak starts at startingCash.
func MaxDrawdown(curve []backtest.EquityPoint, startingCash float64) float64 {
	peak := startingCash
	worst := 0.0
	for _, p := range curve {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			worst = max(worst, (peak-p.Value)/peak)
		}
	}
	return worst
}

