package data

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rustyeddy/pead/market"
)

// CSVPredictions reads a single predictions file shared by all symbols,
// with columns Symbol, Earnings_Date and Predicted_EPS. The file is parsed
// on first use and the rows are kept by symbol; it is safe for concurrent
// use.
type CSVPredictions struct {
	Path string

	once     sync.Once
	bySymbol map[string][]market.SurprisePrediction
	err      error
}

// Predictions returns the rows for symbol in file order. A symbol with no
// rows yields an empty slice, not an error.
func (c *CSVPredictions) Predictions(ctx context.Context, symbol string) ([]market.SurprisePrediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.once.Do(c.load)
	if c.err != nil {
		return nil, c.err
	}

	rows := c.bySymbol[strings.ToUpper(symbol)]
	out := make([]market.SurprisePrediction, len(rows))
	for i, p := range rows {
		p.Symbol = symbol
		out[i] = p
	}
	return out, nil
}

func (c *CSVPredictions) load() {
	header, rows, err := readCSV(c.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.err = fmt.Errorf("predictions: %w", ErrNoData)
			return
		}
		c.err = fmt.Errorf("predictions: %w", err)
		return
	}
	idx, err := indexColumns(header).require("symbol", "earnings_date", "predicted_eps")
	if err != nil {
		c.err = fmt.Errorf("predictions: %s: %w", c.Path, err)
		return
	}

	c.bySymbol = make(map[string][]market.SurprisePrediction)
	for _, rec := range rows {
		sym := strings.ToUpper(strings.TrimSpace(field(rec, idx[0])))
		if sym == "" {
			continue
		}
		date, ok := parseEarningsDate(field(rec, idx[1]))
		if !ok {
			continue
		}
		eps, ok := parseFloat(field(rec, idx[2]))
		if !ok {
			continue
		}
		c.bySymbol[sym] = append(c.bySymbol[sym], market.SurprisePrediction{Symbol: sym, EarningsDate: date, PredictedEPS: eps})
	}
}
