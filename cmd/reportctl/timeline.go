package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newTimelineCmd(rt *runtime) *cobra.Command {
	var (
		company string
		format  string
		out     string
	)
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Print or export the representative timeline of a company",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			if format == "json" {
				resp, err := a.Timelines.Timeline(cmd.Context(), company)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			result, err := a.Exports.ExportTimeline(cmd.Context(), company, format)
			if err != nil {
				return err
			}
			if out == "" {
				out = result.Filename
			}
			if err := os.WriteFile(out, result.Payload, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(result.Payload))
			return nil
		},
	}
	cmd.Flags().StringVarP(&company, "company", "c", "", "Company name (required)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json, csv or pdf")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file for csv/pdf exports")
	mustMarkRequired(cmd, "company")
	return cmd
}

func newLeadTimeCmd(rt *runtime) *cobra.Command {
	var company, keyword string
	cmd := &cobra.Command{
		Use:   "lead-time",
		Short: "Print lead-time statistics for a keyword step",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := a.Timelines.KeywordLeadTime(cmd.Context(), company, keyword)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVarP(&company, "company", "c", "", "Company name (required)")
	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "Step name keyword (required)")
	mustMarkRequired(cmd, "company")
	mustMarkRequired(cmd, "keyword")
	return cmd
}

func mustMarkRequired(cmd *cobra.Command, name string) {
	if err := cmd.MarkFlagRequired(name); err != nil {
		panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
	}
}
