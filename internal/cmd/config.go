package cmd

import (
	"fmt"

	"github.com/wax-pm/wax/internal/config"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command
func NewConfigCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show wax configuration and paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cfg)
		},
	}

	return cmd
}

func showConfig(cfg *config.Config) error {
	fmt.Printf("WAX_PREFIX: %s\n", cfg.Prefix)
	fmt.Printf("WAX_CELLAR: %s\n", cfg.Cellar)
	fmt.Printf("WAX_CASKROOM: %s\n", cfg.Caskroom)
	fmt.Printf("WAX_CACHE: %s\n", cfg.Cache)
	fmt.Printf("WAX_LOGS: %s\n", cfg.Logs)
	fmt.Printf("WAX_TEMP: %s\n", cfg.Temp)

	fmt.Printf("\nBehavior flags:\n")
	fmt.Printf("  Debug: %t\n", cfg.Debug)
	fmt.Printf("  Verbose: %t\n", cfg.Verbose)
	fmt.Printf("  Auto-update: %t\n", cfg.AutoUpdate)
	fmt.Printf("  Install cleanup: %t\n", cfg.InstallCleanup)

	return nil
}
