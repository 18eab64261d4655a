package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/pnl/journal"
	"github.com/rustyeddy/pnl/service"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize stored trades for a date window",
	Long: `Build a P&L summary (totals, top winners and losers, per-symbol results
and a daily curve) from trades already in the journal.

Examples:
  pnl report --days 7
  pnl report --since 2024-01-01 --symbol AAPL`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

var (
	reportSince  string
	reportUntil  string
	reportDays   int
	reportSymbol string
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportSince, "since", "", "first exit day (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportUntil, "until", "", "last exit day, inclusive (YYYY-MM-DD)")
	reportCmd.Flags().IntVar(&reportDays, "days", 30, "days to include when --since is not set")
	reportCmd.Flags().StringVar(&reportSymbol, "symbol", "", "only this symbol")
}

func runReport(cmd *cobra.Command, args []string) error {
	start, end, err := window(time.Local, time.Now(), reportSince, reportUntil, reportDays)
	if err != nil {
		return err
	}

	j, err := openStore()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	p, err := cfg.Profile(profile)
	if err != nil {
		return err
	}

	recs, err := j.ListTrades(journal.TradeFilter{
		Strategy: p.Name,
		Symbol:   reportSymbol,
		Start:    start,
		End:      end,
	})
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	svc := service.New(nil, zlog, serviceOptions()...)
	summary, curve := svc.Summarize(recs)

	return journal.WriteReportOrg(cmd.OutOrStdout(), journal.Report{
		Run: journal.SyncRun{
			Strategy: p.Name,
			Created:  time.Now(),
			Start:    start,
			End:      end,
			Trades:   len(recs),
			TotalPnL: summary.TotalPnL,
		},
		Summary: summary,
		Curve:   curve,
	})
}
