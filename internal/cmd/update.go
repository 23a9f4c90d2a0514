package cmd

import (
	"fmt"

	"github.com/wax-pm/wax/internal/apiclient"
	"github.com/wax-pm/wax/internal/config"
	"github.com/wax-pm/wax/internal/logger"
	"github.com/wax-pm/wax/internal/tap"
	"github.com/spf13/cobra"
)

// NewUpdateCmd creates the update command
func NewUpdateCmd(cfg *config.Config) *cobra.Command {
	var (
		merge      bool
		preinstall bool
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Fetch the newest version of wax and all formulae",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Progress("Updating wax")

			// Update taps
			tapManager := tap.NewManager(cfg)
			taps, err := tapManager.ListTaps()
			if err != nil {
				return fmt.Errorf("failed to list taps: %w", err)
			}

			for _, t := range taps {
				logger.Step("Updating tap %s", t.Name)
				if err := tapManager.UpdateTap(t.Name); err != nil {
					logger.Warn("Failed to update tap %s: %v", t.Name, err)
				}
			}

			logger.Step("Updating formula and cask index")
			apiClient := apiclient.NewClient(cfg)
			formulae, err := apiClient.AllFormulae()
			if err != nil {
				logger.Warn("Failed to update formula index: %v", err)
			} else {
				logger.Info("%d formulae", len(formulae))
			}
			casks, err := apiClient.AllCasks()
			if err != nil {
				logger.Warn("Failed to update cask index: %v", err)
			} else {
				logger.Info("%d casks", len(casks))
			}

			logger.Success("Updated wax")
			return nil
		},
	}

	cmd.Flags().BoolVar(&merge, "merge", false, "Use git merge to apply updates")
	cmd.Flags().BoolVar(&preinstall, "preinstall", false, "Run preinstall script")

	return cmd
}
