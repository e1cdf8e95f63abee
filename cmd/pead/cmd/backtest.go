package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rustyeddy/pead/analysis"
	"github.com/rustyeddy/pead/backtest"
	"github.com/rustyeddy/pead/config"
	"github.com/rustyeddy/pead/data"
	"github.com/rustyeddy/pead/internal/metrics"
	"github.com/rustyeddy/pead/journal"
	"github.com/rustyeddy/pead/pkg/id"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run the earnings-drift backtest over a set of symbols",
	Long: `Backtest replays 5-minute bars around each earnings report and trades
the post-announcement drift.

Every symbol runs independently; a symbol with missing data is reported
and skipped. Results are written under the results directory, one
<SYM>/<SYM>_backtest_results folder per symbol plus a Sharpe comparison,
and recorded in the SQLite run history.

Example:
  pead backtest --config pead.yaml --symbols NVDA,GS --workers 4`,
	RunE: runBacktest,
}

var (
	btConfigPath  string
	btSymbols     []string
	btDataDir     string
	btResultsDir  string
	btDBPath      string
	btWorkers     int
	btMetricsFile string
	btNoProgress  bool
	btInitSchema  bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "c", "", "path to config file (defaults are used when empty)")
	backtestCmd.Flags().StringSliceVarP(&btSymbols, "symbols", "s", nil, "symbols to backtest (overrides config)")
	backtestCmd.Flags().StringVar(&btDataDir, "data-dir", "", "directory of the CSV inputs (overrides config)")
	backtestCmd.Flags().StringVarP(&btResultsDir, "results", "r", "", "results directory (overrides config)")
	backtestCmd.Flags().StringVarP(&btDBPath, "db", "d", "", "path to SQLite run history, \"-\" to disable (overrides config)")
	backtestCmd.Flags().IntVarP(&btWorkers, "workers", "w", 0, "symbols run in parallel, 0 = NumCPU (overrides config)")
	backtestCmd.Flags().StringVar(&btMetricsFile, "metrics-file", "", "write Prometheus metrics in textfile format")
	backtestCmd.Flags().BoolVar(&btNoProgress, "no-progress", false, "disable the progress bar")
	backtestCmd.Flags().BoolVar(&btInitSchema, "init-schema", false, "postgres: create missing tables first")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadBacktestConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	src, err := data.Open(ctx, cfg.Data)
	if err != nil {
		return fmt.Errorf("open data: %w", err)
	}
	defer src.Close()
	if btInitSchema {
		pg, ok := src.Bars.(*data.Postgres)
		if !ok {
			return fmt.Errorf("--init-schema requires the postgres source")
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	fmt.Printf("Running earnings-drift backtest\n")
	fmt.Printf("  Symbols: %s\n", strings.Join(cfg.Symbols, ", "))
	fmt.Printf("  Data: %s (%s)\n", cfg.Data.Source, cfg.Data.Dir)
	fmt.Printf("  Results: %s\n\n", cfg.Output.ResultsDir)

	runner := &backtest.Runner{
		Config:      cfg,
		Bars:        src.Bars,
		Earnings:    src.Earnings,
		Predictions: src.Predictions,
		Logger:      logger,
	}
	var bar *progressbar.ProgressBar
	if !btNoProgress {
		bar = newProgressBar(len(cfg.Symbols))
		runner.OnDone = func(backtest.SymbolResult) { _ = bar.Add(1) }
	}

	created := time.Now()
	results, err := runner.Run(ctx, cfg.Symbols)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	var hist *journal.SQLite
	runID := id.New()
	if cfg.Output.DBPath != "" {
		hist, err = journal.NewSQLite(cfg.Output.DBPath)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer hist.Close()

		raw, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		if err := hist.RecordRun(ctx, journal.Run{
			RunID:   runID,
			Created: created,
			Source:  cfg.Data.Source,
			Symbols: cfg.Symbols,
			Config:  raw,
		}); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}

	opts := analysis.OptionsFromConfig(cfg.Analysis)
	w := journal.Writer{Base: cfg.Output.ResultsDir}
	var all []analysis.Stats
	var failed []backtest.SymbolResult
	for _, sr := range results {
		if sr.Err != nil {
			failed = append(failed, sr)
			continue
		}
		stats := analysis.Analyze(sr.Result, opts)
		all = append(all, stats)

		dir, err := w.Write(sr.Result, stats, sr.Prices)
		if err != nil {
			return fmt.Errorf("%s: write results: %w", sr.Symbol, err)
		}
		logger.Info("results written", zap.String("symbol", sr.Symbol), zap.String("dir", dir))

		if hist != nil {
			if err := hist.RecordResult(ctx, runID, sr.Result, stats); err != nil {
				return fmt.Errorf("%s: record result: %w", sr.Symbol, err)
			}
		}
	}

	if len(all) > 0 {
		path, err := journal.WriteComparison(cfg.Output.ResultsDir, all)
		if err != nil {
			return fmt.Errorf("write comparison: %w", err)
		}
		logger.Info("comparison written", zap.String("path", path))
	}
	if btMetricsFile != "" {
		if err := metrics.WriteTextfile(btMetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	fmt.Printf("\nBacktest Complete!\n")
	if hist != nil {
		fmt.Printf("  Run: %s\n", runID)
	}
	fmt.Println()
	printStats(all)
	for _, sr := range failed {
		fmt.Printf("  %-6s skipped: %v\n", sr.Symbol, sr.Err)
	}
	if len(all) == 0 {
		return fmt.Errorf("no symbol could be backtested")
	}
	return nil
}

// loadBacktestConfig reads the config file, if any, and applies the flags
// that were set on the command line.
func loadBacktestConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if btConfigPath != "" {
		c, err := config.LoadFromFile(btConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	}

	flags := cmd.Flags()
	if flags.Changed("symbols") {
		cfg.Symbols = btSymbols
	}
	if flags.Changed("data-dir") {
		cfg.Data.Dir = btDataDir
	}
	if flags.Changed("results") {
		cfg.Output.ResultsDir = btResultsDir
	}
	if flags.Changed("db") {
		cfg.Output.DBPath = btDBPath
	}
	if cfg.Output.DBPath == "-" {
		cfg.Output.DBPath = ""
	}
	if flags.Changed("workers") {
		cfg.Workers = btWorkers
	}

	for i, s := range cfg.Symbols {
		cfg.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("no symbols to backtest")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newProgressBar(n int) *progressbar.ProgressBar {
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("Backtesting symbols..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

func printStats(all []analysis.Stats) {
	fmt.Printf("  %-6s %6s %5s %5s %8s %12s %12s %8s %8s\n",
		"Symbol", "Trades", "Won", "Lost", "Win%", "Gross", "Net", "Sharpe", "MaxDD%")
	for _, s := range all {
		sharpe := "n/a"
		if s.Sharpe != nil {
			sharpe = fmt.Sprintf("%.4f", *s.Sharpe)
		}
		fmt.Printf("  %-6s %6d %5d %5d %8.2f %12.2f %12.2f %8s %8.2f\n",
			s.Symbol, s.Total, s.Won, s.Lost, s.WinRate*100, s.GrossPnL, s.NetPnL, sharpe, s.MaxDrawdown*100)
	}
}
