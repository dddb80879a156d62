package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/doctag/internal/describe"
)

var mathMLFlags generateFlags

var mathMLVersions = map[string]bool{
	"mathml-1": true,
	"mathml-2": true,
	"mathml-3": true,
	"mathml-4": true,
}

var mathMLCmd = &cobra.Command{
	Use:   "generate-mathml",
	Short: "Generate MathML markup for formulas",
	Long: `Generate MathML markup for structure elements matching --tags and attach
it to each formula as an associated file. An existing associated file for
the same MathML version is replaced.

Also accepts a standalone image as input, writing the markup to an XML
file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !mathMLVersions[mathMLFlags.mathmlVer] {
			return fmt.Errorf("invalid --mathml-version %q: choose mathml-1 through mathml-4", mathMLFlags.mathmlVer)
		}
		return runGenerate(cmd, describe.TaskMathML, &mathMLFlags)
	},
}

func init() {
	addGenerateFlags(mathMLCmd, &mathMLFlags, "Formula")
	mathMLCmd.Flags().StringVar(&mathMLFlags.mathmlVer, "mathml-version", "mathml-4", "MathML version: mathml-1 through mathml-4")
}
