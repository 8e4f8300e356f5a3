// Package cli implements the practicectl operator tool.
package cli

import (
	"context"

	"github.com/Harshitk-cp/practicedesk/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "practicectl",
		Short: "Operator tool for the practicedesk API",
		Long: `practicectl inspects and prepares a practicedesk deployment.

It reads the same environment as the server (PRACTICEDESK_ENV, DATABASE_URL,
STORE_DRIVER, ...).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Load()
		},
	}
	root.AddCommand(newExplainCmd(), newVersionCmd(), newSeedCmd())
	return root
}

// ExecuteContext runs the root command.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
