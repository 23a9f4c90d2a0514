package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/wax-pm/wax/internal/apiclient"
	"github.com/wax-pm/wax/internal/config"
	"github.com/wax-pm/wax/internal/formula"
	"github.com/wax-pm/wax/internal/installer"
	"github.com/wax-pm/wax/internal/logger"
	"github.com/wax-pm/wax/internal/state"
	"github.com/spf13/cobra"
)

// NewUninstallCmd creates the uninstall command
func NewUninstallCmd(cfg *config.Config) *cobra.Command {
	var (
		force      bool
		ignoreDeps bool
		zap        bool
	)

	cmd := &cobra.Command{
		Use:     "uninstall [OPTIONS] FORMULA|CASK...",
		Aliases: []string{"remove", "rm"},
		Short:   "Uninstall a formula or cask",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUninstall(cfg, args, &uninstallOptions{
				Force:      force,
				IgnoreDeps: ignoreDeps,
				Zap:        zap,
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Warn instead of failing for formulae that are not installed; only the recorded version is removed")
	cmd.Flags().BoolVar(&ignoreDeps, "ignore-dependencies", false, "Don't fail uninstall if dependencies would be left")
	cmd.Flags().BoolVar(&zap, "zap", false, "Accepted but ignored; cask zap stanzas are not run")

	return cmd
}

type uninstallOptions struct {
	Force      bool
	IgnoreDeps bool
	Zap        bool
}

func runUninstall(cfg *config.Config, args []string, opts *uninstallOptions) error {
	st, err := state.Load(cfg.StatePath())
	if err != nil {
		return fmt.Errorf("failed to load install state: %w", err)
	}
	apiClient := apiclient.NewClient(cfg)
	inst := installer.New(cfg, &installer.Options{Force: opts.Force})

	for _, name := range args {
		logger.PrintHeader(fmt.Sprintf("Uninstalling: %s", name))

		pkg, ok := st.Formula(name)
		if !ok {
			if _, isCask := st.Cask(name); isCask {
				if err := inst.UninstallCask(name); err != nil {
					return fmt.Errorf("failed to uninstall cask %s: %w", name, err)
				}
				logger.Success("Successfully uninstalled %s", name)
				continue
			}
			if opts.Force {
				logger.Warn("Formula %s is not installed", name)
				continue
			}
			return fmt.Errorf("formula %s is not installed", name)
		}
		logger.Info("Found installed version: %s", pkg.Version)

		if !opts.IgnoreDeps {
			logger.Step("Checking for dependents")
			dependents := findDependents(st, apiClient, name)
			if len(dependents) > 0 {
				return fmt.Errorf("cannot uninstall %s because it is required by: %s",
					name, strings.Join(dependents, ", "))
			}
			logger.Debug("No dependents found")
		}

		f := &formula.Formula{Name: pkg.Name, Version: pkg.Version}

		logger.Step("Unlinking %s", name)
		if err := inst.UnlinkFormula(f); err != nil {
			logger.Warn("Failed to unlink %s: %v", name, err)
		}

		logger.Step("Removing %s files", name)
		if err := os.RemoveAll(f.GetCellarPath(cfg.Cellar)); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}

		if err := inst.RemoveFromState(name); err != nil {
			logger.Warn("Failed to update install state for %s: %v", name, err)
		}
		st.RemoveFormula(name) // keep this run's view in sync for later dependents checks

		logger.Success("Successfully uninstalled %s", name)
	}

	return nil
}

// getInstalledVersion returns the version wax's install state has on record
// for formulaName, used by upgrade/install to decide whether a newer
// version is available.
func getInstalledVersion(cfg *config.Config, formulaName string) (string, error) {
	st, err := state.Load(cfg.StatePath())
	if err != nil {
		return "", err
	}
	pkg, ok := st.Formula(formulaName)
	if !ok {
		return "", fmt.Errorf("formula %s is not installed", formulaName)
	}
	return pkg.Version, nil
}

// findDependents returns the names of installed formulae that declare name
// as a dependency, looked up against the index rather than an on-disk
// receipt since the install state doesn't itself carry dependency lists.
func findDependents(st *state.State, apiClient *apiclient.Client, name string) []string {
	var dependents []string
	for _, pkg := range st.Formulae() {
		if pkg.Name == name {
			continue
		}
		f, err := apiClient.GetFormula(pkg.Name)
		if err != nil {
			continue
		}
		for _, dep := range f.Dependencies {
			if dep == name {
				dependents = append(dependents, pkg.Name)
				break
			}
		}
	}
	return dependents
}
