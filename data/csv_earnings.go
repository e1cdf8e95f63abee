package data

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rustyeddy/pead/market"
)

var earningsLayouts = []string{
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05Z07:00",
	time.RFC3339,
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// CSVEarnings reads exported earnings calendars, one file per symbol,
// with columns "Earnings Date", "EPS Estimate" and "Reported EPS".
type CSVEarnings struct {
	Dir     string
	Pattern string

	// Now is the cut-off for future events. Defaults to time.Now.
	Now func() time.Time
}

// Path returns the file read for symbol.
func (c CSVEarnings) Path(symbol string) string {
	return filepath.Join(c.Dir, fmt.Sprintf(c.Pattern, symbol))
}

// Earnings returns the newest lookback events reported on or before
// today, oldest first. Rows missing either EPS figure are dropped.
// Report dates are converted to UTC and truncated to the date.
func (c CSVEarnings) Earnings(ctx context.Context, symbol string, lookback int) ([]market.EarningsEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := c.Path(symbol)
	header, rows, err := readCSV(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("earnings %s: %w", symbol, ErrNoData)
		}
		return nil, fmt.Errorf("earnings %s: %w", symbol, err)
	}
	idx, err := indexColumns(header).require("earnings date", "eps estimate", "reported eps")
	if err != nil {
		return nil, fmt.Errorf("earnings %s: %s: %w", symbol, path, err)
	}

	events := make([]market.EarningsEvent, 0, len(rows))
	for _, rec := range rows {
		date, ok := parseEarningsDate(field(rec, idx[0]))
		if !ok {
			continue
		}
		est, ok1 := parseFloat(field(rec, idx[1]))
		rep, ok2 := parseFloat(field(rec, idx[2]))
		if !ok1 || !ok2 {
			continue
		}
		events = append(events, market.EarningsEvent{ReportDate: date, EPSEstimate: est, ReportedEPS: rep})
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	events = newestEvents(events, now(), lookback)
	if len(events) == 0 {
		return nil, fmt.Errorf("earnings %s: %w", symbol, ErrNoData)
	}
	return events, nil
}

func parseEarningsDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range earningsLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return market.DateOf(t.UTC()), true
		}
	}
	return time.Time{}, false
}
