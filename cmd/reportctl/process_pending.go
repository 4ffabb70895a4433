package main

import (
	"github.com/spf13/cobra"
)

func newProcessPendingCmd(rt *runtime) *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "process-pending",
		Short: "Promote every pending report that is not on hold",
		Long:  "Pages through PENDING step reports, promotes each one whose company, unit, channel and step resolve, and prints the batch summary.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			result, err := a.Assignment.ProcessPending(cmd.Context(), actor)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "reportctl", "Actor id recorded in the audit trail")
	return cmd
}
