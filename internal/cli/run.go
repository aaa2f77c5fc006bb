package cli

import (
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var flags serviceFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build and publish the consolidated token report",
		Long:  "Scan the conversation table, merge with the published historical table, upload the consolidated CSV and refresh the Athena view.",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := flags.build(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := svc.Run(cmd.Context())
			if err != nil {
				return err
			}
			return printSummary(summary)
		},
	}

	flags.register(cmd)

	return cmd
}
