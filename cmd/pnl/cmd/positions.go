package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/pnl/service"
)

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Show open positions and compare them with rebuilt open lots",
	Long: `Fetch the broker's current positions and the fills since --since, then
list every symbol where the open lots rebuilt from those fills disagree
with the reported position. Positions opened before the window show up as
mismatches.

Example:
  pnl positions --days 90`,
	Args: cobra.NoArgs,
	RunE: runPositions,
}

var (
	positionsSince string
	positionsDays  int
)

func init() {
	rootCmd.AddCommand(positionsCmd)

	positionsCmd.Flags().StringVar(&positionsSince, "since", "", "first day of fills to replay (YYYY-MM-DD)")
	positionsCmd.Flags().IntVar(&positionsDays, "days", 90, "days of fills to replay when --since is not set")
}

func runPositions(cmd *cobra.Command, args []string) error {
	start, _, err := window(time.Local, time.Now(), positionsSince, "", positionsDays)
	if err != nil {
		return err
	}

	creds, err := cfg.Credentials(profile)
	if err != nil {
		return fmt.Errorf("credentials: %w", err)
	}

	client, err := newClient()
	if err != nil {
		return fmt.Errorf("broker: %w", err)
	}

	svc := service.New(client, zlog, append(serviceOptions(), service.WithPositions(client))...)
	rep, err := svc.Positions(cmd.Context(), creds, start)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "SYMBOL\tSIDE\tQTY\tAVG ENTRY\tPRICE\tMKT VALUE\tUNREALIZED\tPCT\t")
	for _, p := range rep.Snapshot.Positions {
		fmt.Fprintf(tw, "%s\t%s\t%g\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f%%\t\n",
			p.Symbol, p.Side, p.Qty, p.AvgEntryPrice, p.CurrentPrice, p.MarketValue, p.UnrealizedPL, p.UnrealizedPLPct)
	}
	fmt.Fprintf(tw, "TOTAL\t\t\t\t\t%.2f\t%.2f\t\t\n", rep.Snapshot.TotalMarketValue, rep.Snapshot.TotalUnrealizedPL)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(rep.Discrepancies) == 0 {
		fmt.Fprintln(out, "\n✓ Open lots match reported positions")
	} else {
		fmt.Fprintln(out, "\nMismatches (rebuilt vs reported):")
		tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, d := range rep.Discrepancies {
			fmt.Fprintf(tw, "  %s\t%g\t%g\tdiff %g\n", d.Symbol, d.FromLots, d.Reported, d.Diff())
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	printWarnings(cmd.ErrOrStderr(), rep.Errors)
	return nil
}
