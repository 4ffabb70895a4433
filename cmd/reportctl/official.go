package main

import (
	"github.com/spf13/cobra"

	"github.com/noah-isme/recruit-timeline-api/internal/dto"
)

func newRecordOfficialCmd(rt *runtime) *cobra.Command {
	var (
		stepID int64
		date   string
		actor  string
	)
	cmd := &cobra.Command{
		Use:   "record-official",
		Short: "Attach a company-confirmed date to a step",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := a.Officials.Record(cmd.Context(), stepID, dto.RecordOfficialDateRequest{Date: date}, actor)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().Int64Var(&stepID, "step", 0, "Step id (required)")
	cmd.Flags().StringVar(&date, "date", "", "Date as YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&actor, "actor", "reportctl", "Actor id recorded in the audit trail")
	mustMarkRequired(cmd, "step")
	mustMarkRequired(cmd, "date")
	return cmd
}
