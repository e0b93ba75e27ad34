package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// walkCommands visits every command in the tree depth-first.
func walkCommands(cmd *cobra.Command, fn func(*cobra.Command)) {
	fn(cmd)
	for _, sub := range cmd.Commands() {
		walkCommands(sub, fn)
	}
}

// subcommandsMarker separates a parent's Long text from its generated list.
const subcommandsMarker = "\n\nSubcommands:\n"

// enrichParentLong appends the list of available subcommands to a parent
// command's Long description. Running it again is a no-op.
func enrichParentLong(cmd *cobra.Command) {
	if cmd == rootCmd || !cmd.HasSubCommands() || strings.Contains(cmd.Long, subcommandsMarker) {
		return
	}

	var sb strings.Builder
	sb.WriteString(cmd.Long)
	sb.WriteString(subcommandsMarker)
	for _, sub := range cmd.Commands() {
		if sub.IsAvailableCommand() {
			sb.WriteString(fmt.Sprintf("  %-16s %s\n", sub.Name(), sub.Short))
		}
	}

	cmd.Long = sb.String()
}
