package cmd

import (
	"fmt"

	"github.com/wax-pm/wax/internal/config"
	"github.com/wax-pm/wax/internal/tap"
	"github.com/spf13/cobra"
)

// coreTaps are the catalog taps bottle resolution depends on; removing them
// would strand every already-installed formula without an index entry.
var coreTaps = map[string]bool{
	"homebrew/core": true,
	"homebrew/cask": true,
}

// NewUntapCmd creates the untap command
func NewUntapCmd(cfg *config.Config) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "untap [OPTIONS] TAP",
		Short: "Remove a tapped formula repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tapName := args[0]
			if coreTaps[tapName] && !force {
				return fmt.Errorf("refusing to untap %s without --force: it backs the package catalog", tapName)
			}

			tapManager := tap.NewManager(cfg)
			options := &tap.TapOptions{
				Force: force,
			}

			return tapManager.RemoveTap(tapName, options)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Untap even if formulae from this tap are installed")

	return cmd
}
