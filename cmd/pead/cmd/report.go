package cmd

import (
	"fmt"

	"github.com/rustyeddy/pead/journal"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show stored backtest results",
	Long: `Report prints the per-symbol summaries of a run from the SQLite run
history. The latest run is shown unless --run is given.

Examples:
  pead report --db results/backtest.sqlite
  pead report --run 01J0Z8Q6N4W9V2X7K3M5T8R1PA --trades`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

var (
	reportDBPath string
	reportRunID  string
	reportTrades bool
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportDBPath, "db", "d", "results/backtest.sqlite", "path to SQLite run history")
	reportCmd.Flags().StringVar(&reportRunID, "run", "", "run ID (default latest)")
	reportCmd.Flags().BoolVar(&reportTrades, "trades", false, "list the run's trades")
}

func runReport(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(reportDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	ctx := cmd.Context()
	var run journal.Run
	if reportRunID != "" {
		run, err = j.GetRun(ctx, reportRunID)
	} else {
		run, err = j.LatestRun(ctx)
	}
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}

	sums, err := j.ListSummariesByRun(ctx, run.RunID)
	if err != nil {
		return fmt.Errorf("list summaries: %w", err)
	}

	fmt.Printf("Run %s\n", run.RunID)
	fmt.Printf("  Created: %s\n", run.Created.Local().Format("2006-01-02 Mon 15:04"))
	fmt.Printf("  Source: %s\n\n", run.Source)
	fmt.Printf("  %-6s %6s %5s %5s %8s %12s %12s %8s %8s\n",
		"Symbol", "Trades", "Won", "Lost", "Win%", "Gross", "Net", "Sharpe", "MaxDD%")
	for _, s := range sums {
		sharpe := "n/a"
		if s.Sharpe != nil {
			sharpe = fmt.Sprintf("%.4f", *s.Sharpe)
		}
		fmt.Printf("  %-6s %6d %5d %5d %8.2f %12.2f %12.2f %8s %8.2f\n",
			s.Symbol, s.Trades, s.Wins, s.Losses, s.WinRate*100, s.GrossPnL, s.NetPnL, sharpe, s.MaxDrawdown*100)
	}

	if !reportTrades {
		return nil
	}
	trades, err := j.ListTradesByRun(ctx, run.RunID)
	if err != nil {
		return fmt.Errorf("list trades: %w", err)
	}
	fmt.Printf("\n  %-10s %-5s %-16s %-16s %10s %10s %6s %10s %-11s\n",
		"Trade", "Side", "Entry", "Exit", "In", "Out", "Size", "Net", "Reason")
	for _, t := range trades {
		fmt.Printf("  %-10s %-5s %-16s %-16s %10.2f %10.2f %6d %10.2f %-11s\n",
			t.ID, t.Side, t.EntryTime.Format("2006-01-02 15:04"), t.ExitTime.Format("2006-01-02 15:04"),
			t.EntryPrice, t.ExitPrice, t.Size, t.RealizedPnL, t.Reason)
	}
	return nil
}
