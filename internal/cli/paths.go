package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/hdwscan/internal/dpath"
	"github.com/mrz1836/hdwscan/internal/output"
)

// pathsCmd lists the configured derivation paths.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "List the derivation paths scan can use",
	Long: `List the configured derivation paths. Pass their labels to
'hdwscan scan --path'.

Example:
  hdwscan paths
  hdwscan paths -o json`,
	RunE: runPaths,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(pathsCmd)
}

func runPaths(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	if cc.Formatter.IsJSON() {
		return cc.Formatter.Print(cc.Config.Paths)
	}

	table := output.NewTable("LABEL", "PATH", "FIRST ADDRESS")
	for _, p := range cc.Config.Paths {
		table.AddRow(p.Label, p.Value, p.At(0))
	}
	return table.Render(cc.Formatter.Writer())
}

// completePathLabels offers configured path labels for shell completion.
func completePathLabels(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	paths := dpath.Defaults()
	if cfg != nil {
		paths = cfg.Paths
	}
	labels := make([]string, 0, len(paths))
	for _, p := range paths {
		labels = append(labels, p.Label)
	}
	return labels, cobra.ShellCompDirectiveNoFileComp
}
