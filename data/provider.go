// Package data loads bars, earnings and model predictions for the
// backtest from CSV files or Postgres.
package data

import (
	"context"
	"errors"
	"sort"
	"time"
	_ "time/tzdata"

	"github.com/rustyeddy/pead/market"
)

// ErrNoData is returned when a source has nothing for a symbol.
var ErrNoData = errors.New("no data")

// MarketDataProvider supplies 5-minute bars around the given report dates.
type MarketDataProvider interface {
	Bars(ctx context.Context, symbol string, reportDates []time.Time) ([]market.Bar, error)
}

// EarningsProvider supplies up to lookback past earnings events.
type EarningsProvider interface {
	Earnings(ctx context.Context, symbol string, lookback int) ([]market.EarningsEvent, error)
}

// PredictionProvider supplies model EPS forecasts.
type PredictionProvider interface {
	Predictions(ctx context.Context, symbol string) ([]market.SurprisePrediction, error)
}

const (
	// FetchDuration is how far back from the window end bars are requested.
	FetchDuration = 12400 * time.Second
)

// FetchEnd is the UTC time of day a report date's request window ends.
var FetchEnd = market.NewClock(23, 30)

// Exchange is the zone bar timestamps are recorded in. Bars carry the
// exchange wall clock in a UTC-located time, as the CSV exports do.
var Exchange = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// Window is a half-open request range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// WallClock converts w to the wall clock of loc, the form bar timestamps
// are stored in.
func (w Window) WallClock(loc *time.Location) Window {
	return Window{Start: wallClock(w.Start.In(loc)), End: wallClock(w.End.In(loc))}
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// FetchWindows returns one bar request window per distinct report date,
// ending at end (UTC) on that date and spanning d. Windows are sorted.
func FetchWindows(dates []time.Time, end market.Clock, d time.Duration) []Window {
	seen := make(map[time.Time]bool, len(dates))
	out := make([]Window, 0, len(dates))
	for _, date := range dates {
		day := market.DateOf(date)
		if seen[day] {
			continue
		}
		seen[day] = true
		stop := end.On(day, time.UTC)
		out = append(out, Window{Start: stop.Add(-d), End: stop})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].End.Before(out[j].End) })
	return out
}

// ReportDates extracts the report dates of events.
func ReportDates(events []market.EarningsEvent) []time.Time {
	out := make([]time.Time, len(events))
	for i, ev := range events {
		out[i] = ev.ReportDate
	}
	return out
}

// sortBars orders bars by time and drops repeated timestamps, keeping the
// first occurrence.
func sortBars(bars []market.Bar) []market.Bar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	out := bars[:0]
	for i, b := range bars {
		if i > 0 && b.Time.Equal(out[len(out)-1].Time) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// newestEvents keeps events at or before now, newest lookback of them,
// returned oldest first.
func newestEvents(events []market.EarningsEvent, now time.Time, lookback int) []market.EarningsEvent {
	today := market.DateOf(now.UTC())
	kept := make([]market.EarningsEvent, 0, len(events))
	for _, ev := range events {
		if ev.ReportDate.After(today) {
			continue
		}
		kept = append(kept, ev)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].ReportDate.Before(kept[j].ReportDate) })
	if lookback > 0 && len(kept) > lookback {
		kept = kept[len(kept)-lookback:]
	}
	return kept
}
