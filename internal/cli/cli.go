// Package cli is the dashboard's command-line entry point.
package cli

import (
	"errors"
	"fmt"
	"os"

	"dashboard/internal/config"

	"github.com/spf13/cobra"
)

// Exit codes returned by Execute.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// CLI holds the command-line interface state.
type CLI struct {
	rootCmd    *cobra.Command
	cfg        *config.Config
	configPath string
}

// New creates a new CLI instance.
func New() *CLI {
	cli := &CLI{}
	cli.rootCmd = cli.newRootCmd()
	return cli
}

// Execute runs the CLI with os.Args.
func (c *CLI) Execute() int {
	if err := c.rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return ExitFailure
	}
	return ExitSuccess
}

func (c *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Huna cancer screening dashboard",
		Long: `Serves the Huna screening dashboard: operator login, spreadsheet upload,
the simulated inference flow and the pre-computed risk results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&c.configPath, "config", "configs/config.yml", "config file")

	cmd.AddCommand(c.newServeCmd())
	cmd.AddCommand(c.newSeedCmd())

	return cmd
}

// loadConfig reads the config file. A missing default file falls back to built-in defaults.
func (c *CLI) loadConfig() error {
	cfg, err := config.LoadConfig(c.configPath)
	if err != nil {
		if !c.rootCmd.PersistentFlags().Changed("config") && errors.Is(err, os.ErrNotExist) {
			cfg = &config.Config{}
			cfg.ApplyDefaults()
		} else {
			return err
		}
	}
	c.cfg = cfg
	return nil
}
