// Package metrics provides Prometheus instrumentation for backtest runs.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BarsProcessed counts bars fed through the engine, per symbol.
	BarsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pead_bars_processed_total",
		Help: "Total number of bars processed by the backtest engine",
	}, []string{"symbol"})

	// TradesTotal counts closed trades by side and exit reason.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pead_trades_total",
		Help: "Total number of closed trades",
	}, []string{"side", "reason"})

	// EntriesSkipped counts evaluated entries that did not open a position.
	EntriesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pead_entries_skipped_total",
		Help: "Entries evaluated but not opened",
	}, []string{"reason"})

	// SymbolFailures counts symbols whose data could not be loaded.
	SymbolFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pead_symbol_failures_total",
		Help: "Symbols that failed before or during the bar loop",
	})

	// SymbolDuration tracks wall time per symbol backtest.
	SymbolDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pead_symbol_duration_seconds",
		Help:    "Per-symbol backtest duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	})
)

// WriteTextfile writes every registered metric to path in the text
// exposition format, for the node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
