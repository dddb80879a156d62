package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/doctag/internal/describe"
)

var tableSummaryFlags generateFlags

var tableSummaryCmd = &cobra.Command{
	Use:   "generate-table-summary",
	Short: "Generate summaries for tables",
	Long: `Generate a short summary for structure elements matching --tags and store
it in each table's Summary attribute. Tables that already carry a summary
are skipped unless --overwrite is set.

Also accepts a standalone image as input, writing the summary to a
text file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd, describe.TaskTableSummary, &tableSummaryFlags)
	},
}

func init() {
	addGenerateFlags(tableSummaryCmd, &tableSummaryFlags, "Table")
	tableSummaryCmd.Flags().StringVar(&tableSummaryFlags.lang, "lang", "", "language for generated text (default from config)")
	tableSummaryCmd.Flags().BoolVar(&tableSummaryFlags.overwrite, "overwrite", false, "replace existing table summaries")
}
