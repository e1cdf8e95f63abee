// Package signal computes the blended earnings-surprise score used to
// decide entries.
package signal

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/pead/market"
)

// ErrSignalUndefined is returned when an EPS denominator is zero.
var ErrSignalUndefined = errors.New("surprise undefined: zero EPS denominator")

// Weights blend the model and analyst surprises.
type Weights struct {
	Model   float64
	Analyst float64
}

// DefaultWeights is 0.2 model, 0.8 analyst.
var DefaultWeights = Weights{Model: 0.2, Analyst: 0.8}

// Score is the result of a surprise computation.
type Score struct {
	Analyst float64
	Model   float64
	Blended float64
}

// Surprise blends the analyst and model surprises of a reported EPS.
//
//	analyst = (reported - estimate) / estimate
//	model   = (reported - predicted) / predicted
//	blended = w.Model*model + w.Analyst*analyst
func Surprise(ev market.EarningsEvent, pred market.SurprisePrediction, w Weights) (Score, error) {
	if ev.EPSEstimate == 0 {
		return Score{}, fmt.Errorf("%w: eps estimate on %s", ErrSignalUndefined, ev.ReportDate.Format(time.DateOnly))
	}
	if pred.PredictedEPS == 0 {
		return Score{}, fmt.Errorf("%w: predicted eps on %s", ErrSignalUndefined, pred.EarningsDate.Format(time.DateOnly))
	}

	s := Score{
		Analyst: (ev.ReportedEPS - ev.EPSEstimate) / ev.EPSEstimate,
		Model:   (ev.ReportedEPS - pred.PredictedEPS) / pred.PredictedEPS,
	}
	s.Blended = w.Model*s.Model + w.Analyst*s.Analyst
	return s, nil
}

// Nearest returns the prediction whose EarningsDate is closest to date.
// Ties keep the earliest element in slice order.
func Nearest(preds []market.SurprisePrediction, date time.Time) (market.SurprisePrediction, bool) {
	best := -1
	var bestDiff time.Duration
	for i, p := range preds {
		diff := absDuration(p.EarningsDate.Sub(date))
		if best == -1 || diff < bestDiff {
			best = i
			bestDiff = diff
		}
	}
	if best == -1 {
		return market.SurprisePrediction{}, false
	}
	return preds[best], true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
