package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/rustyeddy/pnl/journal"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored trades as CSV",
	Long: `Write realized trades from the journal as CSV, one row per trade.

Examples:
  pnl export --since 2024-01-01 -f trades.csv
  pnl export --days 7 > week.csv`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var (
	exportSince  string
	exportUntil  string
	exportDays   int
	exportOutput string
	exportAll    bool
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportSince, "since", "", "first exit day (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportUntil, "until", "", "last exit day, inclusive (YYYY-MM-DD)")
	exportCmd.Flags().IntVar(&exportDays, "days", 30, "days to include when --since is not set")
	exportCmd.Flags().StringVarP(&exportOutput, "file", "f", "", "output file (default stdout)")
	exportCmd.Flags().BoolVar(&exportAll, "all-profiles", false, "include every profile")
}

func runExport(cmd *cobra.Command, args []string) (err error) {
	start, end, err := window(time.Local, time.Now(), exportSince, exportUntil, exportDays)
	if err != nil {
		return err
	}

	j, err := openStore()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	filter := journal.TradeFilter{Start: start, End: end}
	if !exportAll {
		p, err := cfg.Profile(profile)
		if err != nil {
			return err
		}
		filter.Strategy = p.Name
	}

	recs, err := j.ListTrades(filter)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, ferr := os.Create(exportOutput)
		if ferr != nil {
			return fmt.Errorf("create %s: %w", exportOutput, ferr)
		}
		defer func() { err = multierr.Append(err, f.Close()) }()
		w = f
	}

	if err := journal.WriteTradesCSV(w, recs); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	if exportOutput != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported %d trade(s) to %s\n", len(recs), exportOutput)
	}
	return nil
}
