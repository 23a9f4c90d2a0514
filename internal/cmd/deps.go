package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wax-pm/wax/internal/apiclient"
	"github.com/wax-pm/wax/internal/config"
	"github.com/wax-pm/wax/internal/logger"
	"github.com/wax-pm/wax/internal/state"
	"github.com/spf13/cobra"
)

// NewDepsCmd creates the deps command
func NewDepsCmd(cfg *config.Config) *cobra.Command {
	var (
		showInstalled   bool
		showMissing     bool
		showDependents  bool
		includeOptional bool
		includeBuild    bool
		includeTest     bool
		tree            bool
		topLevel        bool
		annotate        bool
	)

	cmd := &cobra.Command{
		Use:   "deps [OPTIONS] FORMULA...",
		Short: "Show dependencies for formulae",
		Long: `Show dependencies for the given formulae. When given multiple formula
arguments, show the intersection of their dependencies.

By default, deps shows required dependencies for the given formulae.
State-based options like --installed can filter out/in formulae based on their
installation state.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeps(cfg, args, &depsOptions{
				showInstalled:   showInstalled,
				showMissing:     showMissing,
				showDependents:  showDependents,
				includeOptional: includeOptional,
				includeBuild:    includeBuild,
				includeTest:     includeTest,
				tree:            tree,
				topLevel:        topLevel,
				annotate:        annotate,
			})
		},
	}

	cmd.Flags().BoolVar(&showInstalled, "installed", false, "Show only dependencies that are installed")
	cmd.Flags().BoolVar(&showMissing, "missing", false, "Show only missing dependencies")
	cmd.Flags().BoolVar(&showDependents, "dependents", false, "Show formulae that depend on the specified formula")
	cmd.Flags().BoolVar(&includeOptional, "include-optional", false, "Include optional dependencies")
	cmd.Flags().BoolVar(&includeBuild, "include-build", false, "Include build dependencies")
	cmd.Flags().BoolVar(&includeTest, "include-test", false, "Include test dependencies")
	cmd.Flags().BoolVar(&tree, "tree", false, "Show dependencies as a tree")
	cmd.Flags().BoolVar(&topLevel, "top-level", false, "Show only top-level dependencies")
	cmd.Flags().BoolVar(&annotate, "annotate", false, "Mark installed dependencies with [installed]")

	return cmd
}

type depsOptions struct {
	showInstalled   bool
	showMissing     bool
	showDependents  bool
	includeOptional bool
	includeBuild    bool
	includeTest     bool
	tree            bool
	topLevel        bool
	annotate        bool
}

func runDeps(cfg *config.Config, formulaNames []string, opts *depsOptions) error {
	apiClient := apiclient.NewClient(cfg)

	if opts.showDependents {
		return showDependents(cfg, apiClient, formulaNames)
	}

	if opts.tree {
		return showDepsTree(apiClient, formulaNames, make(map[string]bool))
	}

	st, err := state.Load(cfg.StatePath())
	if err != nil {
		return fmt.Errorf("failed to load install state: %w", err)
	}
	installed := st.InstalledNames()

	names := make(map[string]bool)
	for i, root := range formulaNames {
		f, err := apiClient.GetFormula(root)
		if err != nil {
			return fmt.Errorf("formula %s not found: %w", root, err)
		}

		deps := f.Dependencies
		set := make(map[string]bool, len(deps))
		for _, d := range deps {
			set[d] = true
		}

		if i == 0 {
			names = set
		} else {
			for name := range names {
				if !set[name] {
					delete(names, name)
				}
			}
		}
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		if opts.showMissing && installed[name] {
			continue
		}
		if opts.showInstalled && !installed[name] {
			continue
		}
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	for _, name := range sorted {
		if opts.annotate && installed[name] {
			fmt.Printf("%s [installed]\n", name)
		} else {
			fmt.Println(name)
		}
	}

	return nil
}

// showDependents scans the installed formula catalog for formulae that
// declare any of formulaNames as a dependency.
func showDependents(cfg *config.Config, apiClient *apiclient.Client, formulaNames []string) error {
	st, err := state.Load(cfg.StatePath())
	if err != nil {
		return fmt.Errorf("failed to load install state: %w", err)
	}

	targets := make(map[string]bool, len(formulaNames))
	for _, name := range formulaNames {
		targets[name] = true
	}

	var dependents []string
	for _, pkg := range st.Formulae() {
		f, err := apiClient.GetFormula(pkg.Name)
		if err != nil {
			continue
		}
		for _, dep := range f.Dependencies {
			if targets[dep] {
				dependents = append(dependents, pkg.Name)
				break
			}
		}
	}

	sort.Strings(dependents)
	if len(dependents) == 0 {
		logger.Info("No installed formulae depend on %s", strings.Join(formulaNames, ", "))
		return nil
	}
	for _, name := range dependents {
		fmt.Println(name)
	}
	return nil
}

func showDepsTree(apiClient *apiclient.Client, formulaNames []string, seen map[string]bool) error {
	for _, name := range formulaNames {
		fmt.Println(name)
		if err := printDepsTree(apiClient, name, "", seen); err != nil {
			return err
		}
	}
	return nil
}

// printDepsTree prints name's dependencies, indented under indent, without
// repeating a branch already expanded elsewhere in the tree.
func printDepsTree(apiClient *apiclient.Client, name, indent string, seen map[string]bool) error {
	if seen[name] {
		return nil
	}
	seen[name] = true

	f, err := apiClient.GetFormula(name)
	if err != nil {
		return fmt.Errorf("formula %s not found: %w", name, err)
	}

	for i, dep := range f.Dependencies {
		branch, childIndent := "├── ", indent+"│   "
		if i == len(f.Dependencies)-1 {
			branch, childIndent = "└── ", indent+"    "
		}
		fmt.Printf("%s%s%s\n", indent, branch, dep)
		if err := printDepsTree(apiClient, dep, childIndent, seen); err != nil {
			return err
		}
	}

	return nil
}
