package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/pnl/config"
	"github.com/rustyeddy/pnl/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "pnl",
	Short: "Realized P&L reconciliation from broker fills",
	Long: `pnl rebuilds round-trip trades from broker fill activity using FIFO lot
matching and reports the realized profit and loss.

It provides tools for:
  - Syncing fills from the Alpaca activity feed into a local journal
  - Reconciling an exported activity file offline
  - Daily and per-symbol P&L reports from the journal
  - Comparing rebuilt open lots with the broker's positions

Errors in the feed never hide results: whatever could be matched is
printed, followed by a list of every problem found.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var (
	cfgFile  string
	envFile  string
	profile  string
	logLevel string

	cfg  *config.Config
	zlog *zap.Logger = zap.NewNop()
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context) error {
	defer func() { _ = zlog.Sync() }()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "pnl.yaml", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with credentials")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "credential profile (default is the first configured)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
}

// setup loads the config, overlays the environment and builds the logger.
// A missing config file is fine unless --config was given explicitly.
func setup(cmd *cobra.Command, args []string) error {
	c, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}

	l, err := logger.New(logger.Options{Level: c.Log.Level, Console: c.Log.Console})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	cfg, zlog = c, l
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	c := config.Default()
	if _, err := os.Stat(cfgFile); err == nil {
		if c, err = config.LoadFromFile(cfgFile); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	} else if cmd.Flags().Changed("config") {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := c.ApplyEnv(envFile); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}
