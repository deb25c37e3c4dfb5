package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/quoteseek/internal/version"
)

// NewVersionCmd constructs the `quoteseek version` subcommand.
// It prints the release, commit and build date from version.Get.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the quoteseek version, git commit, and build date",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get())
		},
	}
}
