package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jackzampolin/doctag/internal/config"
	"github.com/jackzampolin/doctag/internal/describe"
	"github.com/jackzampolin/doctag/internal/doc"
	"github.com/jackzampolin/doctag/internal/extract"
	"github.com/jackzampolin/doctag/internal/mode"
	"github.com/jackzampolin/doctag/internal/pdftree"
	"github.com/jackzampolin/doctag/internal/pipeline"
)

// errRunFailed signals a run that produced nothing but failures. The report
// has already been printed, so the message stays terse.
var errRunFailed = errors.New("run failed")

type generateFlags struct {
	input      string
	output     string
	tags       string
	ignoreCase bool
	lang       string
	overwrite  bool
	prompt     string
	openaiKey  string
	mathmlVer  string
}

// addGenerateFlags registers the flags every generator shares. Task-specific
// flags (--mathml-version) are added by the individual commands.
func addGenerateFlags(cmd *cobra.Command, f *generateFlags, defaultTags string) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "input file: tagged PDF, image, or XML")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file: PDF, TXT, or XML depending on input")
	cmd.Flags().StringVar(&f.tags, "tags", defaultTags, "regular expression matched against structure tag names")
	cmd.Flags().BoolVar(&f.ignoreCase, "ignore-case", false, "match tag names case-insensitively")
	cmd.Flags().StringVar(&f.prompt, "prompt", "", "custom prompt text or path to a prompt file")
	cmd.Flags().StringVar(&f.openaiKey, "openai-key", "", "OpenAI API key (overrides config)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
}

func runGenerate(cmd *cobra.Command, task describe.Task, f *generateFlags) error {
	ctx := cmd.Context()
	logger := newLogger()

	m, err := mode.Detect(task, f.input, f.output)
	if err != nil {
		return err
	}

	cm, err := config.NewManager(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := cm.Get()

	key := f.openaiKey
	if key == "" {
		key = cfg.ResolvedOpenAIKey()
	}
	if key == "" {
		return errors.New("no OpenAI API key: pass --openai-key, set openai_key in config, or export OPENAI_API_KEY")
	}

	lang := f.lang
	if lang == "" {
		lang = cfg.Language
	}

	client := describe.NewOpenAIClient(describe.OpenAIConfig{
		APIKey:            key,
		Model:             cfg.Model,
		Timeout:           cfg.RequestTimeout,
		MaxTokens:         cfg.MaxTokens,
		MaxRetries:        cfg.MaxRetries,
		RequestsPerMinute: cfg.RequestsPerMinute,
		Logger:            logger,
	})

	var engine doc.Engine
	if m == mode.Document {
		engine = pdftree.NewEngine(pdftree.Config{
			JPEGQuality: cfg.JPEGQuality,
			Logger:      logger,
		})
	}

	orch, err := pipeline.New(pipeline.Config{
		Task:          task,
		Mode:          m,
		Input:         f.input,
		Output:        f.output,
		TagPattern:    f.tags,
		IgnoreCase:    f.ignoreCase,
		Overwrite:     f.overwrite,
		Language:      lang,
		MathMLVersion: f.mathmlVer,
		Prompt:        f.prompt,
		Engine:        engine,
		Describer:     client,
		Extractor: extract.New(extract.Config{
			DPI:           cfg.DPI,
			ContextRadius: cfg.ContextTags,
			Logger:        logger,
		}),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	report, runErr := orch.Run(ctx)
	if report != nil {
		if perr := printReport(report); perr != nil {
			logger.Error("failed to render report", "error", perr)
		}
	}
	if runErr != nil {
		logger.Error("run aborted", "error", runErr)
		return runErr
	}
	if !report.Success() {
		return errRunFailed
	}
	return nil
}

func printReport(r *pipeline.Report) error {
	switch reportFormat {
	case "json":
		out, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(out))
	default:
		out, err := yaml.Marshal(r)
		if err != nil {
			return err
		}
		fmt.Fprint(os.Stdout, string(out))
	}
	return nil
}
