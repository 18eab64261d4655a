package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/rustyeddy/pnl/service"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch fills, rebuild realized trades and store them",
	Long: `Fetch fill activity for a date window from the broker, match it into
round-trip trades with FIFO lots, store the trades in the journal and print
a summary.

Re-syncing an overlapping window updates the stored trades in place.

Examples:
  pnl sync --days 7
  pnl sync --since 2024-01-01 --until 2024-01-31 --profile live
  pnl sync --format json`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var (
	syncSince  string
	syncUntil  string
	syncDays   int
	syncFormat string
)

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVar(&syncSince, "since", "", "first day to fetch (YYYY-MM-DD)")
	syncCmd.Flags().StringVar(&syncUntil, "until", "", "last day to fetch, inclusive (YYYY-MM-DD)")
	syncCmd.Flags().IntVar(&syncDays, "days", 30, "days to fetch when --since is not set")
	syncCmd.Flags().StringVarP(&syncFormat, "format", "o", "org", "output format: org or json")
}

func runSync(cmd *cobra.Command, args []string) (err error) {
	start, end, err := window(time.Local, time.Now(), syncSince, syncUntil, syncDays)
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

	j, err := openJournal()
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() { err = multierr.Append(err, j.Close()) }()

	svc := service.New(client, zlog, append(serviceOptions(), service.WithJournal(j))...)
	rep, err := svc.Sync(cmd.Context(), creds, start, end)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	return writeReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), syncFormat, rep)
}
