package cli

import (
	"github.com/spf13/cobra"
)

func newHistoricalCmd() *cobra.Command {
	var flags serviceFlags

	cmd := &cobra.Command{
		Use:   "historical",
		Short: "Reprocess the old conversation table",
		Long:  "Scan the legacy conversation table under the frozen legacy counting rules and publish the historical CSV the consolidated run reads.",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := flags.build(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := svc.RunHistorical(cmd.Context())
			if err != nil {
				return err
			}
			return printSummary(summary)
		},
	}

	flags.register(cmd)

	return cmd
}
