package cmd

import (
	"github.com/wax-pm/wax/internal/config"
	"github.com/wax-pm/wax/internal/logger"
	"github.com/spf13/cobra"
)

// NewServicesCmd creates the services command
func NewServicesCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "services [SUBCOMMAND]",
		Short: "Manage background services",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// wax manages packages, not launchd/systemd units; background service
	// supervision is homebrew-services' job, not this command's.
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all managed services",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Info("wax does not manage background services; install homebrew-services for that")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "start [SERVICE...]",
		Short: "Start services",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Info("wax does not manage background services; install homebrew-services for that")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stop [SERVICE...]",
		Short: "Stop services",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Info("wax does not manage background services; install homebrew-services for that")
			return nil
		},
	})

	return cmd
}
