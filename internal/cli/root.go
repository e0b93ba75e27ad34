// Package cli implements the hdwscan command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mrz1836/hdwscan/internal/config"
	"github.com/mrz1836/hdwscan/internal/output"
	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "hdwscan",
	Short: "Discover funded accounts across HD derivation paths",
	Long: `hdwscan scans the address space of a hierarchical deterministic wallet
path by path, shows which addresses hold funds, and imports the ones you
select into a local account store.

Example:
  hdwscan paths
  hdwscan scan --path "Default (ETH)" --show-empty
  hdwscan scan --select 0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed --commit
  hdwscan accounts list --current`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := initGlobals(cmd); err != nil {
			return err
		}
		SetCmdContext(cmd, NewCommandContext(cfg, logger, formatter))
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		format := output.FormatText
		if formatter != nil {
			format = formatter.Format()
		}
		_ = output.FormatError(os.Stderr, err, format)
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return hdwerr.ExitCode(err)
}

// initGlobals initializes global configuration, logger, and formatter.
func initGlobals(cmd *cobra.Command) error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	loaded, err := config.LoadOrDefault(config.Path(home))
	if err != nil {
		return err
	}
	cfg = loaded
	cfg.Home = home

	config.ApplyEnvironment(cfg)

	// Command-line flags win over the environment
	if homeDir != "" {
		cfg.Home = homeDir
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != "auto" {
		cfg.Output.DefaultFormat = outputFormat
	}

	if err := cfg.Validate(); err != nil {
		return hdwerr.WithSuggestion(err, "fix "+config.Path(cfg.Home)+" or run 'hdwscan config init --force'")
	}

	logger, err = config.NewLogger(config.ParseLogLevel(cfg.Logging.Level), cfg.LogFilePath())
	if err != nil {
		// Logging is best effort
		logger = config.NullLogger()
	}
	logger.SetJSONOutput(cfg.Logging.Format == "json")

	out := cmd.OutOrStdout()
	formatter = output.NewFormatter(output.DetectFormat(out, output.ParseFormat(cfg.Output.DefaultFormat)), out)

	return nil
}

// cleanup releases resources.
func cleanup() {
	if logger != nil {
		_ = logger.Close()
	}
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "hdwscan data directory (default: ~/.hdwscan)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cobra.OnInitialize(func() {
		walkCommands(rootCmd, enrichParentLong)
	})
}
