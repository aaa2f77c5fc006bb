package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tokensreport",
		Short: "Token usage report generator",
		Long:  "Tokensreport scans the conversation record table, extracts token usage and cost, and publishes the consolidated analysis table to S3.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.AddCommand(
		newRunCmd(),
		newHistoricalCmd(),
	)

	root.Version = Version
	root.SetVersionTemplate(fmt.Sprintf("tokensreport %s\n", Version))

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
