package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print the version number",
	Long:              `Display the current version of the pnl CLI.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pnl version %s\n", version)
		fmt.Fprintln(cmd.OutOrStdout(), "Realized P&L reconciliation from broker fills")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
