// Package main is the entry point for the hdwscan CLI.
package main

import (
	"os"

	"github.com/mrz1836/hdwscan/internal/cli"
)

// Set with -ldflags "-X main.version=..." at build time.
//
//nolint:gochecknoglobals // Build metadata
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	cli.SetBuildInfo(cli.BuildInfo{Version: version, Commit: commit, Date: date})
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
