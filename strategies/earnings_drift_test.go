package strategies

import (
	"testing"
	"time"

	"github.com/rustyeddy/pead/market"
	"github.com/rustyeddy/pead/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportDay = time.Date(2024, 5, 22, 0, 0, 0, 0, time.UTC)

// barsFrom returns one 5-minute bar per close, starting at hh:mm on the
// report day.
func barsFrom(hh, mm int, closes ...float64) []market.Bar {
	start := time.Date(2024, 5, 22, hh, mm, 0, 0, time.UTC)
	out := make([]market.Bar, len(closes))
	for i, c := range closes {
		out[i] = market.Bar{
			Time:  start.Add(time.Duration(i) * 5 * time.Minute),
			Open:  c,
			High:  c,
			Low:   c,
			Close: c,
		}
	}
	return out
}

func flat(price float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func beat() ([]market.EarningsEvent, []market.SurprisePrediction) {
	return []market.EarningsEvent{{ReportDate: reportDay, EPSEstimate: 1.00, ReportedEPS: 1.20}},
		[]market.SurprisePrediction{{Symbol: "NVDA", EarningsDate: reportDay, PredictedEPS: 1.10}}
}

func miss() ([]market.EarningsEvent, []market.SurprisePrediction) {
	return []market.EarningsEvent{{ReportDate: reportDay, EPSEstimate: 1.00, ReportedEPS: 0.80}},
		[]market.SurprisePrediction{{Symbol: "NVDA", EarningsDate: reportDay, PredictedEPS: 0.90}}
}

func run(s *EarningsDrift, bars []market.Bar) []Action {
	out := make([]Action, len(bars))
	for i, b := range bars {
		out[i] = s.OnBar(b)
	}
	return out
}

func TestDefaultParams(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	assert.Equal(t, 0.015, p.TakeProfit)
	assert.Equal(t, 0.015, p.StopLoss)
	assert.Equal(t, 24, p.HoldingPeriodBars)
	assert.Equal(t, 1000.0, p.MaxTradeValue)
	assert.Equal(t, signal.DefaultWeights, p.Weights)
	assert.Equal(t, market.EntryWindow, p.EntryWindow)
	assert.NoError(t, p.Validate())

	p.HoldingPeriodBars = 0
	assert.Error(t, p.Validate())
}

func TestEarningsDrift_LongEntrySizing(t *testing.T) {
	t.Parallel()

	events, preds := beat()
	s := NewEarningsDrift(DefaultParams(), events, preds)
	assert.Equal(t, Flat, s.State())

	a := s.OnBar(barsFrom(16, 5, 50)[0])
	require.Equal(t, Open, a.Kind)
	assert.Equal(t, market.Long, a.Side)
	assert.Equal(t, int64(20), a.Size)
	assert.Equal(t, 50.0, a.Price)
	assert.InDelta(t, 0.178182, a.Score.Blended, 1e-6)

	assert.Equal(t, OpenLong, s.State())
	pos, ok := s.Position()
	require.True(t, ok)
	assert.Equal(t, 0, pos.BarsHeld)
	assert.Equal(t, 50.0, pos.EntryPrice)
}

func TestEarningsDrift_LongExits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		closes   []float64
		reason   ExitReason
		barsHeld int
	}{
		{"take profit at threshold", []float64{100, 100.5, 101.5}, TakeProfit, 2},
		{"take profit above threshold", []float64{100, 103}, TakeProfit, 1},
		{"stop loss at threshold", []float64{100, 99.5, 98.5}, StopLoss, 2},
		{"stop loss below threshold", []float64{100, 90}, StopLoss, 1},
		{"timeout", append([]float64{100}, flat(100.2, 24)...), Timeout, 24},
		{"take profit beats timeout", append(append([]float64{100}, flat(100.2, 23)...), 101.5), TakeProfit, 24},
		{"stop loss beats timeout", append(append([]float64{100}, flat(100.2, 23)...), 98.5), StopLoss, 24},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			events, preds := beat()
			s := NewEarningsDrift(DefaultParams(), events, preds)
			actions := run(s, barsFrom(16, 5, tt.closes...))

			require.Equal(t, Open, actions[0].Kind)
			for _, a := range actions[1 : len(actions)-1] {
				assert.Equal(t, Hold, a.Kind)
			}
			last := actions[len(actions)-1]
			require.Equal(t, Close, last.Kind)
			assert.Equal(t, tt.reason, last.Reason)
			assert.Equal(t, tt.barsHeld, last.Position.BarsHeld)
			assert.Equal(t, tt.closes[len(tt.closes)-1], last.Price)
			assert.Equal(t, Flat, s.State())
		})
	}
}

func TestEarningsDrift_ShortExits(t *testing.T) {
	t.Parallel()

	events, preds := miss()

	s := NewEarningsDrift(DefaultParams(), events, preds)
	actions := run(s, barsFrom(16, 5, 100, 99, 98.5))
	require.Equal(t, Open, actions[0].Kind)
	assert.Equal(t, market.Short, actions[0].Side)
	assert.Equal(t, OpenShort, s.State())
	assert.Equal(t, Hold, actions[1].Kind)
	assert.Equal(t, Close, actions[2].Kind)
	assert.Equal(t, TakeProfit, actions[2].Reason)

	s = NewEarningsDrift(DefaultParams(), events, preds)
	actions = run(s, barsFrom(16, 5, 100, 101.5))
	assert.Equal(t, Close, actions[1].Kind)
	assert.Equal(t, StopLoss, actions[1].Reason)
}

func TestEarningsDrift_NoReentrySameDate(t *testing.T) {
	t.Parallel()

	events, preds := beat()
	s := NewEarningsDrift(DefaultParams(), events, preds)

	// 16:00 open, 16:05 take profit, 16:10 still in the entry window.
	actions := run(s, barsFrom(16, 0, 100, 102, 100))
	assert.Equal(t, Open, actions[0].Kind)
	assert.Equal(t, Close, actions[1].Kind)
	assert.Equal(t, Hold, actions[2].Kind)
	assert.Equal(t, Flat, s.State())
}

func TestEarningsDrift_NoEntry(t *testing.T) {
	t.Parallel()

	events, preds := beat()

	t.Run("no earnings on date", func(t *testing.T) {
		t.Parallel()
		s := NewEarningsDrift(DefaultParams(), nil, preds)
		a := s.OnBar(barsFrom(16, 5, 50)[0])
		assert.Equal(t, Hold, a.Kind)
		assert.Equal(t, Flat, s.State())
	})

	t.Run("outside entry window", func(t *testing.T) {
		t.Parallel()
		s := NewEarningsDrift(DefaultParams(), events, preds)
		actions := run(s, barsFrom(16, 15, 50, 50))
		assert.Equal(t, Hold, actions[0].Kind)
		assert.Equal(t, Hold, actions[1].Kind)
	})

	t.Run("neutral surprise", func(t *testing.T) {
		t.Parallel()
		ev := []market.EarningsEvent{{ReportDate: reportDay, EPSEstimate: 1.00, ReportedEPS: 1.05}}
		s := NewEarningsDrift(DefaultParams(), ev, preds)
		a := s.OnBar(barsFrom(16, 5, 50)[0])
		assert.Equal(t, Hold, a.Kind)
		assert.Equal(t, Flat, s.State())
	})

	t.Run("insufficient size", func(t *testing.T) {
		t.Parallel()
		s := NewEarningsDrift(DefaultParams(), events, preds)
		a := s.OnBar(barsFrom(16, 5, 1500)[0])
		assert.Equal(t, Skip, a.Kind)
		assert.Equal(t, SkipInsufficientSize, a.Skip)
		assert.Equal(t, market.Long, a.Side)
		assert.Equal(t, Flat, s.State())
	})

	t.Run("zero estimate", func(t *testing.T) {
		t.Parallel()
		ev := []market.EarningsEvent{{ReportDate: reportDay, EPSEstimate: 0, ReportedEPS: 1.20}}
		s := NewEarningsDrift(DefaultParams(), ev, preds)
		a := s.OnBar(barsFrom(16, 5, 50)[0])
		assert.Equal(t, Skip, a.Kind)
		assert.Equal(t, SkipSignalUndefined, a.Skip)
		assert.ErrorIs(t, a.Err, signal.ErrSignalUndefined)
	})

	t.Run("no prediction", func(t *testing.T) {
		t.Parallel()
		s := NewEarningsDrift(DefaultParams(), events, nil)
		a := s.OnBar(barsFrom(16, 5, 50)[0])
		assert.Equal(t, Skip, a.Kind)
		assert.Equal(t, SkipNoPrediction, a.Skip)
	})
}

func TestEarningsDrift_HoldsAcrossDays(t *testing.T) {
	t.Parallel()

	events, preds := beat()
	s := NewEarningsDrift(DefaultParams(), events, preds)

	bars := barsFrom(16, 5, append([]float64{100}, flat(100.1, 23)...)...)
	next := time.Date(2024, 5, 23, 16, 5, 0, 0, time.UTC)
	bars = append(bars, market.Bar{Time: next, Close: 100.1})

	actions := run(s, bars)
	last := actions[len(actions)-1]
	require.Equal(t, Close, last.Kind)
	assert.Equal(t, Timeout, last.Reason)
	assert.Equal(t, 24, last.Position.BarsHeld)
}

func TestEarningsDrift_ForceClose(t *testing.T) {
	t.Parallel()

	events, preds := beat()
	s := NewEarningsDrift(DefaultParams(), events, preds)
	bars := barsFrom(16, 5, 100, 100.5)

	_, ok := s.ForceClose(bars[0])
	assert.False(t, ok)

	run(s, bars)
	a, ok := s.ForceClose(bars[1])
	require.True(t, ok)
	assert.Equal(t, Close, a.Kind)
	assert.Equal(t, Timeout, a.Reason)
	assert.Equal(t, Flat, s.State())
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "FLAT", Flat.String())
	assert.Equal(t, "OPEN_LONG", OpenLong.String())
	assert.Equal(t, "OPEN_SHORT", OpenShort.String())
}
