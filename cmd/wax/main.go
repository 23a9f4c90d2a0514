package main

import (
	"fmt"
	"os"

	"github.com/wax-pm/wax/internal/cmd"
	"github.com/wax-pm/wax/internal/config"
	"github.com/wax-pm/wax/internal/logger"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := run(); err != nil {
		logger.Error("wax failed: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	logger.Init(cfg.Debug, cfg.Verbose, cfg.Quiet)

	rootCmd := cmd.NewRootCmd(cfg, Version, GitCommit, BuildDate)
	return rootCmd.Execute()
}
