package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/wax-pm/wax/internal/apiclient"
	"github.com/wax-pm/wax/internal/config"
	"github.com/wax-pm/wax/internal/installer"
	"github.com/wax-pm/wax/internal/logger"
	"github.com/wax-pm/wax/internal/state"
	"github.com/spf13/cobra"
)

// NewUpgradeCmd creates the upgrade command
func NewUpgradeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade [FORMULA|CASK...]",
		Short: "Upgrade formulae and casks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpgrade(cfg, args)
		},
	}

	return cmd
}

func runUpgrade(cfg *config.Config, args []string) error {
	apiClient := apiclient.NewClient(cfg)
	st, err := state.Load(cfg.StatePath())
	if err != nil {
		return fmt.Errorf("failed to load install state: %w", err)
	}

	if len(args) == 0 {
		logger.Progress("Checking for outdated formulae and casks")
		outdatedFormulae, err := findOutdatedFormulae(cfg, apiClient)
		if err != nil {
			return fmt.Errorf("failed to find outdated formulae: %w", err)
		}
		outdatedCasks, err := findOutdatedCasks(st, apiClient)
		if err != nil {
			return fmt.Errorf("failed to find outdated casks: %w", err)
		}

		if len(outdatedFormulae) == 0 && len(outdatedCasks) == 0 {
			logger.Info("All formulae and casks are up to date")
			return nil
		}

		if len(outdatedFormulae) > 0 {
			logger.Info("Found %d outdated formulae: %s", len(outdatedFormulae), strings.Join(outdatedFormulae, ", "))
		}
		if len(outdatedCasks) > 0 {
			logger.Info("Found %d outdated casks: %s", len(outdatedCasks), strings.Join(outdatedCasks, ", "))
		}
		args = append(outdatedFormulae, outdatedCasks...)
	} else {
		logger.Progress("Upgrading: %s", strings.Join(args, ", "))
	}

	for _, name := range args {
		if _, ok := st.Formula(name); ok {
			if isPinned(cfg, name) {
				logger.Info("%s is pinned, not upgrading", name)
				continue
			}
			if err := upgradeFormula(cfg, apiClient, name); err != nil {
				return err
			}
			continue
		}

		if _, ok := st.Cask(name); ok {
			if err := upgradeCask(cfg, apiClient, st, name); err != nil {
				return err
			}
			continue
		}

		logger.Warn("%s is not installed, installing instead", name)
		if err := installFormula(cfg, name); err != nil {
			return fmt.Errorf("failed to install %s: %w", name, err)
		}
		logger.Success("Successfully installed %s", name)
	}

	return nil
}

func upgradeFormula(cfg *config.Config, apiClient *apiclient.Client, formulaName string) error {
	logger.Progress("Upgrading %s", formulaName)

	currentVersion, err := getInstalledVersion(cfg, formulaName)
	if err != nil {
		return fmt.Errorf("failed to get current version of %s: %w", formulaName, err)
	}

	latestFormula, err := apiClient.GetFormula(formulaName)
	if err != nil {
		return fmt.Errorf("failed to get latest version of %s: %w", formulaName, err)
	}

	if currentVersion == latestFormula.Version {
		logger.Info("Formula %s is already up to date (%s)", formulaName, currentVersion)
		return nil
	}

	logger.Info("Upgrading %s from %s to %s", formulaName, currentVersion, latestFormula.Version)

	if err := runUninstall(cfg, []string{formulaName}, &uninstallOptions{Force: true, IgnoreDeps: true}); err != nil {
		return fmt.Errorf("failed to uninstall old version of %s: %w", formulaName, err)
	}

	if err := installFormula(cfg, formulaName); err != nil {
		return fmt.Errorf("failed to install %s: %w", formulaName, err)
	}

	logger.Success("Successfully upgraded %s", formulaName)
	return nil
}

func upgradeCask(cfg *config.Config, apiClient *apiclient.Client, st *state.State, token string) error {
	logger.Progress("Upgrading %s", token)

	rec, _ := st.Cask(token)
	latestCask, err := apiClient.GetCask(token)
	if err != nil {
		return fmt.Errorf("failed to get latest version of %s: %w", token, err)
	}

	if rec.Version == latestCask.Version {
		logger.Info("Cask %s is already up to date (%s)", token, rec.Version)
		return nil
	}

	logger.Info("Upgrading %s from %s to %s", token, rec.Version, latestCask.Version)

	inst := installer.New(cfg, &installer.Options{Force: true})
	if err := inst.UninstallCask(token); err != nil {
		return fmt.Errorf("failed to uninstall old version of %s: %w", token, err)
	}

	if _, err := inst.InstallCask(token); err != nil {
		return fmt.Errorf("failed to install %s: %w", token, err)
	}

	logger.Success("Successfully upgraded %s", token)
	return nil
}

// findOutdatedCasks compares every installed cask's recorded version against
// the latest version in the catalog, returning the tokens that differ.
func findOutdatedCasks(st *state.State, apiClient *apiclient.Client) ([]string, error) {
	var outdated []string

	for _, c := range st.Casks() {
		latestCask, err := apiClient.GetCask(c.Token)
		if err != nil {
			logger.Debug("Failed to get latest version for %s: %v", c.Token, err)
			continue
		}

		if c.Version != latestCask.Version {
			logger.Debug("Found outdated cask: %s (%s -> %s)", c.Token, c.Version, latestCask.Version)
			outdated = append(outdated, c.Token)
		}
	}

	return outdated, nil
}

func findOutdatedFormulae(cfg *config.Config, apiClient *apiclient.Client) ([]string, error) {
	var outdated []string

	// Get list of installed formulae
	files, err := os.ReadDir(cfg.Cellar)
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if !file.IsDir() {
			continue
		}

		formulaName := file.Name()

		// Get current installed version
		currentVersion, err := getInstalledVersion(cfg, formulaName)
		if err != nil {
			logger.Debug("Failed to get version for %s: %v", formulaName, err)
			continue
		}

		// Get latest version from API
		latestFormula, err := apiClient.GetFormula(formulaName)
		if err != nil {
			logger.Debug("Failed to get latest version for %s: %v", formulaName, err)
			continue
		}

		// Compare versions
		if currentVersion != latestFormula.Version {
			logger.Debug("Found outdated formula: %s (%s -> %s)", formulaName, currentVersion, latestFormula.Version)
			outdated = append(outdated, formulaName)
		}
	}

	return outdated, nil
}

func installFormula(cfg *config.Config, formulaName string) error {
	// Use the install command functionality
	opts := &installer.Options{
		BuildFromSource:    false,
		ForceBottle:        false,
		IgnoreDependencies: false,
		OnlyDependencies:   false,
		IncludeTest:        false,
		HeadOnly:           false,
		KeepTmp:            false,
		DebugSymbols:       false,
		Force:              false,
		DryRun:             false,
		Verbose:            cfg.Verbose,
	}

	inst := installer.New(cfg, opts)
	_, err := inst.InstallFormula(formulaName)
	return err
}
