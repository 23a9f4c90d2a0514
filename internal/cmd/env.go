package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/wax-pm/wax/internal/config"
	"github.com/spf13/cobra"
)

// NewPrefixCmd creates the --prefix command
func NewPrefixCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "prefix",
		Hidden: true,
		Short:  "Display wax's install path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Prefix)
			return nil
		},
	}

	return cmd
}

// NewCellarCmd creates the --cellar command
func NewCellarCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "cellar",
		Hidden: true,
		Short:  "Display wax's Cellar path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Cellar)
			return nil
		},
	}

	return cmd
}

// NewCacheCmd creates the --cache command
func NewCacheCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "cache",
		Hidden: true,
		Short:  "Display wax's download cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Cache)
			return nil
		},
	}

	return cmd
}

// NewEnvCmd creates the env command
func NewEnvCmd(cfg *config.Config) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "env",
		Short: "Show a summary of the wax build environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showEnv(cfg, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

// EnvironmentInfo represents wax's resolved runtime environment
type EnvironmentInfo struct {
	Prefix    string `json:"WAX_PREFIX"`
	Cellar    string `json:"WAX_CELLAR"`
	Caskroom  string `json:"WAX_CASKROOM"`
	Cache     string `json:"WAX_CACHE"`
	Logs      string `json:"WAX_LOGS"`
	Temp      string `json:"WAX_TEMP"`
	Path      string `json:"PATH"`
	Platform  string `json:"platform"`
	GoVersion string `json:"go_version"`
}

func showEnv(cfg *config.Config, jsonOutput bool) error {
	pathValue := fmt.Sprintf("%s/bin:%s/sbin:$PATH", cfg.Prefix, cfg.Prefix)

	if jsonOutput {
		env := EnvironmentInfo{
			Prefix:    cfg.Prefix,
			Cellar:    cfg.Cellar,
			Caskroom:  cfg.Caskroom,
			Cache:     cfg.Cache,
			Logs:      cfg.Logs,
			Temp:      cfg.Temp,
			Path:      pathValue,
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			GoVersion: runtime.Version(),
		}

		data, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal environment to JSON: %w", err)
		}
		fmt.Println(string(data))
	} else {
		// Traditional shell export format
		fmt.Printf("export WAX_PREFIX=%s\n", cfg.Prefix)
		fmt.Printf("export WAX_CELLAR=%s\n", cfg.Cellar)
		fmt.Printf("export WAX_CASKROOM=%s\n", cfg.Caskroom)
		fmt.Printf("export PATH=%s\n", pathValue)
	}

	return nil
}
