package market

import (
	"errors"
	"fmt"
	"time"
)

// ErrBarsOutOfOrder is returned when a bar series is not strictly
// increasing in time.
var ErrBarsOutOfOrder = errors.New("bars are not in strictly increasing time order")

// Bar is one OHLCV interval. Time is the wall clock of the exchange
// (minute resolution) and carries no meaningful location.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// EarningsEvent is a single earnings report for a symbol.
type EarningsEvent struct {
	ReportDate  time.Time // UTC, date only
	EPSEstimate float64
	ReportedEPS float64
}

// SurprisePrediction is an independent model's EPS forecast for an
// earnings date.
type SurprisePrediction struct {
	Symbol       string
	EarningsDate time.Time
	PredictedEPS float64
}

// Side of a position.
type Side int8

const (
	Flat  Side = 0
	Long  Side = +1
	Short Side = -1
)

func (s Side) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Sign returns +1 for long, -1 for short and 0 when flat.
func (s Side) Sign() float64 {
	return float64(s)
}

// ValidateBars checks that bars are strictly increasing in time.
func ValidateBars(bars []Bar) error {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return fmt.Errorf("%w: bar %d at %s follows %s", ErrBarsOutOfOrder,
				i, bars[i].Time.Format(time.RFC3339), bars[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}

// DateOf truncates t to its calendar date in UTC, keeping the wall clock
// year/month/day of t.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether a and b fall on the same calendar date
// (each in its own location).
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
