package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"archguard-hq/warden/pkg/cli"
	"archguard-hq/warden/pkg/config"
	"archguard-hq/warden/pkg/telemetry/logging"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Warden - architecture guardrails for multi-service projects",
	Long: `Warden enforces architecture policy on code changes before they land.

It validates unified diffs against a declarative policy document covering
forbidden imports, database ownership, migration placement, multi-tenant
SQL hygiene, Redis cache discipline, and compose manifest rules, and keeps
a merged, queryable view of the project's service topology.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command under a signal-aware context and translates
// the command's error into a process exit code.
func Execute() {
	err := rootCmd.ExecuteContext(cli.SetupSignalHandler())
	if err == nil {
		return
	}

	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		// a nil cause means the command already reported its outcome
		if exitErr.Err != nil {
			fmt.Fprintln(os.Stderr, exitErr.Err)
		}
		os.Exit(exitErr.Code)
	}

	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "warden.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads configuration with env overrides and wires up logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if _, err := logging.Setup(cfg.Telemetry.Logging, os.Stderr); err != nil {
		return nil, err
	}
	return cfg, nil
}
