package data

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rustyeddy/pead/config"
)

// Sources bundles the three providers of one configured data source.
type Sources struct {
	Bars        MarketDataProvider
	Earnings    EarningsProvider
	Predictions PredictionProvider

	close func()
}

// Close releases any connection held by the sources.
func (s *Sources) Close() {
	if s.close != nil {
		s.close()
	}
}

// Open builds the providers selected by c.Source. The shared predictions
// file is parsed once for all symbols.
func Open(ctx context.Context, c config.DataConfig) (*Sources, error) {
	switch c.Source {
	case "csv":
		return &Sources{
			Bars:        CSVBars{Dir: c.Dir, Pattern: c.PriceFile},
			Earnings:    CSVEarnings{Dir: c.Dir, Pattern: c.EarningsFile},
			Predictions: &CSVPredictions{Path: filepath.Join(c.Dir, c.PredictionsFile)},
		}, nil
	case "postgres":
		pg, err := NewPostgres(ctx, c.PostgresURL)
		if err != nil {
			return nil, err
		}
		return &Sources{Bars: pg, Earnings: pg, Predictions: pg, close: pg.Close}, nil
	default:
		return nil, fmt.Errorf("unknown data source %q", c.Source)
	}
}
