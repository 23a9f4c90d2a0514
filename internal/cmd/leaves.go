package cmd

import (
	"fmt"
	"sort"

	"github.com/wax-pm/wax/internal/apiclient"
	"github.com/wax-pm/wax/internal/config"
	"github.com/wax-pm/wax/internal/logger"
	"github.com/wax-pm/wax/internal/model"
	"github.com/wax-pm/wax/internal/state"
	"github.com/spf13/cobra"
)

// NewLeavesCmd creates the leaves command
func NewLeavesCmd(cfg *config.Config) *cobra.Command {
	var (
		installedOnRequest bool
		installedAsDep     bool
	)

	cmd := &cobra.Command{
		Use:   "leaves [OPTIONS]",
		Short: "List installed formulae that are not dependencies of other installed formulae",
		Long: `List installed formulae that are not dependencies of other installed formulae.

These are considered "leaves" in the dependency tree. A formula that was
installed as a dependency is listed too once nothing installed depends on it;
--installed-on-request and --installed-as-dependency narrow the list by how
each formula was installed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLeaves(cfg, &leavesOptions{
				installedOnRequest: installedOnRequest,
				installedAsDep:     installedAsDep,
			})
		},
	}

	cmd.Flags().BoolVar(&installedOnRequest, "installed-on-request", false, "Show only formulae installed on request")
	cmd.Flags().BoolVar(&installedAsDep, "installed-as-dependency", false, "Show only formulae installed as dependencies")

	return cmd
}

type leavesOptions struct {
	installedOnRequest bool
	installedAsDep     bool
}

func runLeaves(cfg *config.Config, opts *leavesOptions) error {
	st, err := state.Load(cfg.StatePath())
	if err != nil {
		return fmt.Errorf("failed to load install state: %w", err)
	}

	installedFormulae := st.Formulae()
	if len(installedFormulae) == 0 {
		logger.Info("No formulae installed")
		return nil
	}

	apiClient := apiclient.NewClient(cfg)
	dependencyMap := buildDependencyMap(apiClient, installedFormulae)

	isDependency := make(map[string]bool)
	for _, deps := range dependencyMap {
		for _, dep := range deps {
			isDependency[dep] = true
		}
	}

	var leaves []string
	for _, pkg := range installedFormulae {
		if isDependency[pkg.Name] {
			continue
		}
		if opts.installedOnRequest && pkg.InstalledAsDep {
			continue
		}
		if opts.installedAsDep && !pkg.InstalledAsDep {
			continue
		}
		leaves = append(leaves, pkg.Name)
	}

	sort.Strings(leaves)
	for _, leaf := range leaves {
		fmt.Println(leaf)
	}

	if len(leaves) == 0 && (opts.installedOnRequest || opts.installedAsDep) {
		logger.Info("No formulae match the specified criteria")
	}

	return nil
}

func getInstalledFormulae(cfg *config.Config) ([]string, error) {
	st, err := state.Load(cfg.StatePath())
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(st.Formulae()))
	for _, pkg := range st.Formulae() {
		names = append(names, pkg.Name)
	}
	return names, nil
}

// buildDependencyMap looks up each installed formula's declared dependencies
// from the catalog, skipping any formula that can no longer be resolved
// (e.g. removed from the tap since it was installed).
func buildDependencyMap(apiClient *apiclient.Client, installed []model.InstalledPackage) map[string][]string {
	dependencyMap := make(map[string][]string, len(installed))

	for _, pkg := range installed {
		f, err := apiClient.GetFormula(pkg.Name)
		if err != nil {
			logger.Debug("Failed to get dependencies for %s: %v", pkg.Name, err)
			continue
		}
		dependencyMap[pkg.Name] = f.Dependencies
	}

	return dependencyMap
}
