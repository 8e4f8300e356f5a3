package cli

import (
	"fmt"

	"github.com/Harshitk-cp/practicedesk/internal/buildconfig"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "practicectl %s (%s)\n", buildconfig.Version(), buildconfig.Commit())
		},
	}
}
