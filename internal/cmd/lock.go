package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/wax-pm/wax/internal/config"
	"github.com/wax-pm/wax/internal/lockfile"
	"github.com/wax-pm/wax/internal/logger"
	"github.com/wax-pm/wax/internal/state"
	"github.com/spf13/cobra"
)

// NewLockCmd creates the lock command
func NewLockCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Generate wax.lock from the currently installed formulae",
		Long: `Project the current install state to wax.lock, pinning each installed
formula to its exact version and the platform tag it was installed under.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLock(cfg)
		},
	}

	return cmd
}

func runLock(cfg *config.Config) error {
	st, err := state.Load(cfg.StatePath())
	if err != nil {
		return fmt.Errorf("failed to load install state: %w", err)
	}

	lf := lockfile.SyncFrom(st.Formulae())
	path := lockfilePath(cfg)
	if err := lf.Save(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	logger.Success("Wrote %s (%d packages)", path, len(lf.Packages))
	return nil
}

// lockfilePath returns wax.lock's on-disk location: alongside the rest of
// wax's per-user state, the same directory syncLockfile already writes to.
func lockfilePath(cfg *config.Config) string {
	return filepath.Join(cfg.StateDir, lockfile.DefaultPath)
}
