package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/doctag/version"
)

var (
	cfgFile      string
	verbose      bool
	reportFormat string
)

var rootCmd = &cobra.Command{
	Use:   "doctag",
	Short: "Generate accessibility descriptions for tagged PDF content",
	Long: `Doctag walks the structure tree of a tagged PDF, renders each matching
element to an image, and asks a multimodal model to describe it.

Supported generators:
  - Alternate text for figures and formulas (Alt attribute)
  - Table summaries (Summary attribute)
  - MathML markup for formulas (attached as an associated file)

Each generator also accepts standalone image or XML input and writes the
result to a text file instead of back into a PDF.`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.doctag/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging",
	)
	rootCmd.PersistentFlags().StringVar(
		&reportFormat, "report", "yaml", "run report format: yaml or json",
	)

	rootCmd.AddCommand(altTextCmd)
	rootCmd.AddCommand(tableSummaryCmd)
	rootCmd.AddCommand(mathMLCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
