package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/pnl/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  pnl config init -o pnl.yaml
  pnl config validate -f pnl.yaml`,
	// config files are handled explicitly by the subcommands
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings.

Example:
  pnl config init -o pnl.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded, and whether
credentials are present for each profile.

Example:
  pnl config validate -f pnl.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "pnl.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	_ = configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	c := config.Default()
	if err := c.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nSet ALPACA_API_KEY_ID and ALPACA_API_SECRET_KEY (or put them in .env) and run:")
	fmt.Fprintf(out, "  pnl sync -c %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	c, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if err := c.ApplyEnv(envFile); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Broker: %d pages x %d, %d retries\n", c.Broker.MaxPages, c.Broker.PageSize, c.Broker.MaxRetries)
	for _, p := range c.Profiles {
		status := "credentials found"
		if _, err := c.Credentials(p.Name); err != nil {
			status = "credentials missing"
		}
		mode := "live"
		if p.Paper {
			mode = "paper"
		}
		fmt.Fprintf(out, "  Profile: %s (%s, prefix %q): %s\n", p.Name, mode, p.EnvPrefix, status)
	}
	fmt.Fprintf(out, "  Journal: %s\n", c.Journal.Type)
	return nil
}
