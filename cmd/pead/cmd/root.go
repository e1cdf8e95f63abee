package cmd

import (
	"github.com/rustyeddy/pead/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "pead",
	Short: "Backtest post-earnings-announcement drift on intraday bars",
	Long: `Pead backtests an earnings-surprise drift strategy across a set of symbols.

For every earnings report it blends the analyst surprise with a model
prediction, enters long or short in the minutes after the announcement
and exits on take-profit, stop-loss or a holding-period timeout.

It provides tools for:
  - Running multi-symbol backtests from CSV files or PostgreSQL
  - Writing per-symbol trade, equity and summary artifacts
  - Keeping a SQLite history of runs and their results
  - Comparing Sharpe ratios across symbols`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(logLevel, logJSON)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

var (
	logLevel string
	logJSON  bool

	logger = zap.NewNop()
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")
}
