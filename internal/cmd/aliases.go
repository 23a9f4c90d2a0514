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

// NewHomeCmd creates the home command (opens formula homepage)
func NewHomeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "home [FORMULA...]",
		Aliases: []string{"homepage"},
		Short:   "Print a formula's homepage URL",
		Long: `Print the homepage URL of each given formula, or Homebrew's homepage if
no argument is provided. No browser is launched, and casks are not looked up.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return openURL("https://brew.sh")
			}
			return openFormulaHomepages(cfg, args)
		},
	}

	return cmd
}

// NewUsesCmd creates the uses command (shows formulae that use this formula)
func NewUsesCmd(cfg *config.Config) *cobra.Command {
	var (
		installed    bool
		recursive    bool
		includeTest  bool
		includeBuild bool
	)

	cmd := &cobra.Command{
		Use:   "uses [OPTIONS] FORMULA",
		Short: "Show installed formulae that specify formula as a dependency",
		Long: `Show installed formulae that declare formula as a direct runtime
dependency. Casks are not searched, and the --installed, --recursive,
--include-test and --include-build flags have no effect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUses(cfg, args[0], &usesOptions{
				installed:    installed,
				recursive:    recursive,
				includeTest:  includeTest,
				includeBuild: includeBuild,
			})
		},
	}

	cmd.Flags().BoolVar(&installed, "installed", false, "Only show formulae and casks that are currently installed")
	cmd.Flags().BoolVar(&recursive, "recursive", false, "Resolve more than one level of dependencies")
	cmd.Flags().BoolVar(&includeTest, "include-test", false, "Include test dependencies")
	cmd.Flags().BoolVar(&includeBuild, "include-build", false, "Include build dependencies")

	return cmd
}

// NewDescCmd creates the desc command (show formula descriptions)
func NewDescCmd(cfg *config.Config) *cobra.Command {
	var (
		searchDesc bool
		name       bool
		eval       bool
	)

	cmd := &cobra.Command{
		Use:   "desc [OPTIONS] FORMULA|TEXT",
		Short: "Display a formula's name and one-line description",
		Long: `Display a formula's name and one-line description. If TEXT is provided
instead of a formula name, show all formulae matching the text in their names
or descriptions.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDesc(cfg, args, &descOptions{
				searchDesc: searchDesc,
				name:       name,
				eval:       eval,
			})
		},
	}

	cmd.Flags().BoolVarP(&searchDesc, "search", "s", false, "Search both name and description")
	cmd.Flags().BoolVarP(&name, "name", "n", false, "Search only in name")
	cmd.Flags().BoolVar(&eval, "eval-all", false, "Evaluate all formulae and casks")

	return cmd
}

// NewOptionsCmd creates the options command (show formula options)
func NewOptionsCmd(cfg *config.Config) *cobra.Command {
	var (
		compact   bool
		installed bool
		all       bool
	)

	cmd := &cobra.Command{
		Use:   "options [OPTIONS] [FORMULA...]",
		Short: "Show install options specific to formula",
		Long: `Show install options specific to formula. Note: Options were removed in
Homebrew 2.0. This command is provided for compatibility but will show
that no options are available.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptions(cfg, args, &optionsOptions{
				compact:   compact,
				installed: installed,
				all:       all,
			})
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "Show all options on a single line separated by spaces")
	cmd.Flags().BoolVar(&installed, "installed", false, "Show options for installed formulae")
	cmd.Flags().BoolVar(&all, "all", false, "Show options for all formulae")

	return cmd
}

// NewMissingCmd creates the missing command
func NewMissingCmd(cfg *config.Config) *cobra.Command {
	var hide []string

	cmd := &cobra.Command{
		Use:   "missing [OPTIONS] [FORMULA...]",
		Short: "Check the given formulae for missing dependencies",
		Long: `Check the given formulae for missing dependencies. If no formulae are
given, check all installed formulae.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMissing(cfg, args, hide)
		},
	}

	cmd.Flags().StringSliceVar(&hide, "hide", nil, "Skip the specified formulae and never report them as missing")

	return cmd
}

type usesOptions struct {
	installed    bool
	recursive    bool
	includeTest  bool
	includeBuild bool
}

type descOptions struct {
	searchDesc bool
	name       bool
	eval       bool
}

type optionsOptions struct {
	compact   bool
	installed bool
	all       bool
}

func openURL(url string) error {
	// The URL is printed only; no browser is launched.
	fmt.Printf("URL: %s\n", url)
	return nil
}

func openFormulaHomepages(cfg *config.Config, formulaNames []string) error {
	apiClient := apiclient.NewClient(cfg)
	for _, formulaName := range formulaNames {
		f, err := apiClient.GetFormula(formulaName)
		if err != nil {
			logger.Error("Failed to resolve %s: %v", formulaName, err)
			continue
		}
		if f.Homepage == "" {
			logger.Warn("%s has no recorded homepage", formulaName)
			continue
		}
		if err := openURL(f.Homepage); err != nil {
			return err
		}
	}
	return nil
}

func runUses(cfg *config.Config, formulaName string, opts *usesOptions) error {
	return showDependents(cfg, apiclient.NewClient(cfg), []string{formulaName})
}

func runDesc(cfg *config.Config, queries []string, opts *descOptions) error {
	if opts.searchDesc || opts.name {
		return searchDescriptions(cfg, queries, opts)
	}

	apiClient := apiclient.NewClient(cfg)
	for _, formulaName := range queries {
		desc, err := getFormulaDescription(apiClient, formulaName)
		if err != nil {
			logger.Error("Failed to get description for %s: %v", formulaName, err)
			continue
		}

		fmt.Printf("%s: %s\n", formulaName, desc)
	}

	return nil
}

func searchDescriptions(cfg *config.Config, queries []string, opts *descOptions) error {
	query := strings.Join(queries, " ")
	logger.Step("Searching for %q", query)

	apiClient := apiclient.NewClient(cfg)
	results, err := apiClient.SearchFormulae(query)
	if err != nil {
		return fmt.Errorf("description search failed: %w", err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	for _, result := range results {
		fmt.Printf("%s: %s\n", result.Name, result.Desc)
	}

	return nil
}

func getFormulaDescription(apiClient *apiclient.Client, formulaName string) (string, error) {
	f, err := apiClient.GetFormula(formulaName)
	if err != nil {
		return "", err
	}
	return f.Description, nil
}

func runOptions(cfg *config.Config, formulaNames []string, opts *optionsOptions) error {
	if len(formulaNames) == 0 && !opts.all && !opts.installed {
		return fmt.Errorf("you must specify at least one formula name")
	}

	logger.Info("Note: Options were removed in Homebrew 2.0.")
	logger.Info("Formulae no longer accept options.")

	if opts.all || opts.installed {
		logger.Info("No formulae have options.")
	} else {
		for _, formulaName := range formulaNames {
			fmt.Printf("%s: no options available\n", formulaName)
		}
	}

	return nil
}

func runMissing(cfg *config.Config, formulaNames []string, hide []string) error {
	if len(formulaNames) == 0 {
		installed, err := getInstalledFormulae(cfg)
		if err != nil {
			return fmt.Errorf("failed to get installed formulae: %w", err)
		}
		formulaNames = installed
	}

	st, err := state.Load(cfg.StatePath())
	if err != nil {
		return fmt.Errorf("failed to load install state: %w", err)
	}
	installedNames := st.InstalledNames()

	hideSet := make(map[string]bool)
	for _, h := range hide {
		hideSet[h] = true
		delete(installedNames, h)
	}

	apiClient := apiclient.NewClient(cfg)

	var missing []string
	for _, formulaName := range formulaNames {
		if hideSet[formulaName] {
			continue
		}

		f, err := apiClient.GetFormula(formulaName)
		if err != nil {
			logger.Debug("Could not resolve %s to check its dependencies: %v", formulaName, err)
			continue
		}

		for _, dep := range f.Dependencies {
			if hideSet[dep] || installedNames[dep] {
				continue
			}
			missing = append(missing, dep)
		}
	}

	if len(missing) == 0 {
		logger.Info("No missing dependencies found")
	} else {
		sort.Strings(missing)
		for _, dep := range missing {
			fmt.Println(dep)
		}
	}

	return nil
}
