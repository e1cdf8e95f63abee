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

// BarTimeLayout is the bar timestamp layout without the trailing zone
// name, e.g. "20240522 16:05:00 US/Eastern".
const BarTimeLayout = "20060102 15:04:05"

// CSVBars reads one bar file per symbol from Dir. Pattern is a format
// string with one %s for the symbol.
type CSVBars struct {
	Dir     string
	Pattern string
}

// Path returns the file read for symbol.
func (c CSVBars) Path(symbol string) string {
	return filepath.Join(c.Dir, fmt.Sprintf(c.Pattern, symbol))
}

// Bars loads the symbol's file. The file already holds only the request
// windows, so reportDates is not consulted. Rows whose date does not
// parse are dropped, and the result is sorted with duplicate times removed.
func (c CSVBars) Bars(ctx context.Context, symbol string, _ []time.Time) ([]market.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := c.Path(symbol)
	header, rows, err := readCSV(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("bars %s: %w", symbol, ErrNoData)
		}
		return nil, fmt.Errorf("bars %s: %w", symbol, err)
	}
	idx, err := indexColumns(header).require("date", "open", "high", "low", "close")
	if err != nil {
		return nil, fmt.Errorf("bars %s: %s: %w", symbol, path, err)
	}
	vol := -1
	if i, ok := indexColumns(header)["volume"]; ok {
		vol = i
	}

	bars := make([]market.Bar, 0, len(rows))
	for _, rec := range rows {
		t, ok := parseBarTime(field(rec, idx[0]))
		if !ok {
			continue
		}
		o, ok1 := parseFloat(field(rec, idx[1]))
		h, ok2 := parseFloat(field(rec, idx[2]))
		l, ok3 := parseFloat(field(rec, idx[3]))
		cl, ok4 := parseFloat(field(rec, idx[4]))
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}
		v, _ := parseFloat(field(rec, vol))
		bars = append(bars, market.Bar{Time: t, Open: o, High: h, Low: l, Close: cl, Volume: v})
	}

	bars = sortBars(bars)
	if len(bars) == 0 {
		return nil, fmt.Errorf("bars %s: %w", symbol, ErrNoData)
	}
	return bars, nil
}

// parseBarTime parses "YYYYMMDD HH:MM:SS [ZONE]" as a wall clock time.
// The zone name is dropped.
func parseBarTime(s string) (time.Time, bool) {
	parts := strings.Fields(s)
	if len(parts) < 2 {
		return time.Time{}, false
	}
	t, err := time.Parse(BarTimeLayout, parts[0]+" "+parts[1])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
