package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/hdwscan/internal/config"
	"github.com/mrz1836/hdwscan/internal/output"
	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and create the hdwscan configuration file.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.hdwscan/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.

Example:
  hdwscan config init
  hdwscan config init --force`,
	RunE: runConfigInit,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the configuration after environment and flag overrides.

Example:
  hdwscan config show
  hdwscan config show -o json`,
	RunE: runConfigShow,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	configPath := config.Path(cc.Config.Home)

	if _, err := os.Stat(configPath); err == nil && !configForce {
		return hdwerr.WithSuggestion(
			hdwerr.ErrGeneral,
			fmt.Sprintf("configuration already exists at %s. Use --force to overwrite.", configPath),
		)
	}

	fresh := config.Defaults()
	fresh.Home = cc.Config.Home
	if err := config.Save(fresh, configPath); err != nil {
		return err
	}

	if cc.Formatter.IsJSON() {
		return cc.Formatter.Print(map[string]string{"path": configPath})
	}
	output.Successf(cc.Formatter.Writer(), "Configuration written to %s", configPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	if cc.Formatter.IsJSON() {
		return cc.Formatter.Print(cc.Config)
	}

	data, err := yaml.Marshal(cc.Config)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	_, err = cc.Formatter.Writer().Write(data)
	return err
}
