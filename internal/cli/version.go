package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// BuildInfo describes the running binary. Set from main via ldflags.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

//nolint:gochecknoglobals // Set once at startup
var buildInfo BuildInfo

// SetBuildInfo records the binary's build metadata.
func SetBuildInfo(info BuildInfo) {
	buildInfo = info
	rootCmd.Version = formatVersion(info)
}

// formatVersion renders info, filling unset fields.
func formatVersion(info BuildInfo) string {
	version, commit, date := info.Version, info.Commit, info.Date
	if version == "" {
		version = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cc := GetCmdContext(cmd)
		if cc.Formatter.IsJSON() {
			return cc.Formatter.Print(buildInfo)
		}
		return cc.Formatter.Println("hdwscan " + formatVersion(buildInfo))
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
}
