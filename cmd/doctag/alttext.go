package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/doctag/internal/describe"
)

var altTextFlags generateFlags

var altTextCmd = &cobra.Command{
	Use:   "generate-alt-text",
	Short: "Generate alternate text for figures and formulas",
	Long: `Generate alternate text for structure elements matching --tags and store
it in each element's Alt attribute. Elements that already carry alternate
text are skipped unless --overwrite is set.

Also accepts a standalone image as input, writing the description to a
text file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd, describe.TaskAltText, &altTextFlags)
	},
}

func init() {
	addGenerateFlags(altTextCmd, &altTextFlags, "Figure|Formula")
	altTextCmd.Flags().StringVar(&altTextFlags.lang, "lang", "", "language for generated text (default from config)")
	altTextCmd.Flags().BoolVar(&altTextFlags.overwrite, "overwrite", false, "replace existing alternate text")
}
