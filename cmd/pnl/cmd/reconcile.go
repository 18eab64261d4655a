package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/pnl/fill"
	"github.com/rustyeddy/pnl/service"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <activities.json>",
	Short: "Reconcile an exported activity file offline",
	Long: `Read a JSON array of fill activity records (as returned by the broker's
activity endpoint) and print the realized trades they produce. Nothing is
fetched or stored. Use "-" to read standard input.

Example:
  pnl reconcile fills.json --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runReconcile,
}

var reconcileFormat string

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVarP(&reconcileFormat, "format", "o", "org", "output format: org or json")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	raws, err := readRecords(cmd.InOrStdin(), args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	svc := service.New(nil, zlog, serviceOptions()...)
	rep := svc.Reconcile(profile, raws)
	return writeReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), reconcileFormat, rep)
}

func readRecords(stdin io.Reader, path string) ([]fill.Raw, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raws []fill.Raw
	if err := dec.Decode(&raws); err != nil {
		return nil, err
	}
	return raws, nil
}
