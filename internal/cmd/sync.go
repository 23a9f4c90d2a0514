package cmd

import (
	"fmt"

	"github.com/wax-pm/wax/internal/apiclient"
	"github.com/wax-pm/wax/internal/config"
	"github.com/wax-pm/wax/internal/installer"
	"github.com/wax-pm/wax/internal/lockfile"
	"github.com/wax-pm/wax/internal/logger"
	"github.com/wax-pm/wax/internal/state"
	"github.com/spf13/cobra"
)

// NewSyncCmd creates the sync command
func NewSyncCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile installed formulae against wax.lock",
		Long: `Load wax.lock and compare it against the current install state. Any
locked package that is missing, or installed under a different version or
platform, is (re)installed. A locked entry whose version no longer exists
in the catalog fails the sync.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cfg)
		},
	}

	return cmd
}

func runSync(cfg *config.Config) error {
	path := lockfilePath(cfg)
	lf, err := lockfile.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	if len(lf.Packages) == 0 {
		logger.Info("%s is empty, nothing to sync", path)
		return nil
	}

	st, err := state.Load(cfg.StatePath())
	if err != nil {
		return fmt.Errorf("failed to load install state: %w", err)
	}

	apiClient := apiclient.NewClient(cfg)
	inst := installer.New(cfg, &installer.Options{Force: true})

	result, err := lockfile.Sync(lf, st, apiClient.GetPlatformTag(), apiClient, func(name, version string) error {
		logger.Progress("Syncing %s %s", name, version)
		_, err := inst.InstallFormula(name)
		return err
	})
	if err != nil {
		return err
	}

	for _, warning := range result.Warnings {
		logger.Warn("%s", warning)
	}
	if len(result.Installed) == 0 {
		logger.Success("Everything already matches wax.lock")
	} else {
		logger.Success("Synced %d package(s): %v", len(result.Installed), result.Installed)
	}
	return nil
}
