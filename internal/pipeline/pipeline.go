// Package pipeline drives one description run: traverse, match, and push
// each node through extract -> describe -> write, isolating per-node
// failures so one bad element never aborts a whole document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/doctag/internal/describe"
	"github.com/jackzampolin/doctag/internal/doc"
	"github.com/jackzampolin/doctag/internal/extract"
	"github.com/jackzampolin/doctag/internal/match"
	"github.com/jackzampolin/doctag/internal/mode"
	"github.com/jackzampolin/doctag/internal/write"
)

// PersistError is fatal: the final save failed, so the run produced no
// durable output even if individual nodes succeeded.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string { return fmt.Sprintf("failed to save %s: %v", e.Path, e.Err) }

func (e *PersistError) Unwrap() error { return e.Err }

// Config configures an Orchestrator for one run.
type Config struct {
	Task   describe.Task
	Mode   mode.Mode
	Input  string
	Output string

	// TagPattern selects nodes by tag name (document mode only).
	TagPattern string
	IgnoreCase bool

	// Overwrite replaces existing attribute values instead of skipping.
	Overwrite bool

	Language      string
	MathMLVersion string
	Prompt        string

	Engine    doc.Engine
	Describer describe.Client
	Extractor *extract.Extractor

	Logger *slog.Logger
}

// Orchestrator runs the pipeline. One orchestrator serves one run.
type Orchestrator struct {
	cfg       Config
	matcher   *match.Matcher
	writer    *write.Writer
	extractor *extract.Extractor
	logger    *slog.Logger
}

// New validates the configuration and prepares a run.
func New(cfg Config) (*Orchestrator, error) {
	if !cfg.Task.Valid() {
		return nil, fmt.Errorf("unknown task %q", cfg.Task)
	}
	if cfg.Describer == nil {
		return nil, fmt.Errorf("no description client configured")
	}
	if cfg.Mode == mode.Document && cfg.Engine == nil {
		return nil, fmt.Errorf("no document engine configured")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	o := &Orchestrator{
		cfg:       cfg,
		extractor: cfg.Extractor,
		writer:    write.New(write.Config{Overwrite: cfg.Overwrite, Logger: logger}),
		logger:    logger.With("component", "pipeline", "task", string(cfg.Task)),
	}
	if o.extractor == nil {
		o.extractor = extract.New(extract.Config{Logger: logger})
	}

	if cfg.Mode == mode.Document {
		m, err := match.New(match.Config{Pattern: cfg.TagPattern, IgnoreCase: cfg.IgnoreCase})
		if err != nil {
			return nil, err
		}
		o.matcher = m
	}
	return o, nil
}

// Run executes the pipeline and returns the run report. The report is
// non-nil whenever processing started; err is non-nil only for fatal
// conditions (open/traverse failures, persistence failure, cancellation).
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.New().String(),
		Task:      string(o.cfg.Task),
		Mode:      o.cfg.Mode.String(),
		Input:     o.cfg.Input,
		Output:    o.cfg.Output,
		StartedAt: time.Now().UTC(),
	}
	defer func() {
		report.ElapsedSeconds = time.Since(report.StartedAt).Seconds()
	}()

	if o.cfg.Mode.Standalone() {
		return report, o.runStandalone(ctx, report)
	}
	return report, o.runDocument(ctx, report)
}

func (o *Orchestrator) runDocument(ctx context.Context, report *Report) error {
	d, err := o.cfg.Engine.Open(o.cfg.Input)
	if err != nil {
		return fmt.Errorf("failed to open document %s: %w", o.cfg.Input, err)
	}
	defer d.Close()

	nodes, err := d.Traverse()
	if err != nil {
		return fmt.Errorf("failed to traverse structure tree: %w", err)
	}

	matched := dedupe(o.matcher.Filter(nodes))
	report.Matched = len(matched)
	o.logger.Info("matched nodes", "pattern", o.cfg.TagPattern, "candidates", len(nodes), "matched", len(matched))

	target := write.TargetFor(o.cfg.Task, false, "", o.cfg.MathMLVersion)
	opts := describe.Options{
		Language:      o.cfg.Language,
		MathMLVersion: o.cfg.MathMLVersion,
		Prompt:        o.cfg.Prompt,
	}

	for _, n := range matched {
		// A run-level timeout takes effect only at node boundaries: once a
		// node starts, it reaches a terminal outcome.
		if err := ctx.Err(); err != nil {
			return err
		}

		if o.writer.HasExistingValue(d, n, target) {
			o.logger.Info("value already exists, skipping", "node", n.ID())
			report.Skipped++
			continue
		}

		status, err := o.processNode(ctx, d, n, target, opts)
		switch {
		case err != nil:
			reason := classifyNodeErr(err)
			o.logger.Warn("node failed", "node", n.ID(), "reason", reason, "error", err)
			report.recordFailure(n.ID(), n.Tag(), reason, err)
		case status == write.StatusSkipped:
			report.Skipped++
		default:
			o.logger.Info("description written", "node", n.ID())
			report.Written++
		}
	}

	// Skipped-only runs leave the source untouched; the destination exists
	// only when something was actually written.
	if report.Written > 0 {
		if err := d.Save(o.cfg.Output); err != nil {
			return &PersistError{Path: o.cfg.Output, Err: err}
		}
		report.Saved = true
		o.logger.Info("document saved", "path", o.cfg.Output, "written", report.Written)
	}
	return nil
}

func (o *Orchestrator) processNode(ctx context.Context, d doc.Document, n doc.Node, target write.Target, opts describe.Options) (write.Status, error) {
	payload, err := o.extractor.FromNode(ctx, d, n, o.cfg.Task)
	if err != nil {
		return "", err
	}

	res, err := o.cfg.Describer.Describe(ctx, payload, opts)
	if err != nil {
		return "", err
	}

	return o.writer.Apply(d, n, target, res)
}

// runStandalone processes the whole input as a single synthetic node.
func (o *Orchestrator) runStandalone(ctx context.Context, report *Report) error {
	report.Matched = 1

	var payload *describe.Payload
	var err error
	if o.cfg.Mode == mode.Markup {
		payload, err = o.extractor.FromMarkupFile(o.cfg.Input, o.cfg.Task)
	} else {
		payload, err = o.extractor.FromImageFile(o.cfg.Input, o.cfg.Task)
	}
	if err != nil {
		report.recordFailure(o.cfg.Input, "", classifyNodeErr(err), err)
		return nil
	}

	opts := describe.Options{
		Language:      o.cfg.Language,
		MathMLVersion: o.cfg.MathMLVersion,
		Prompt:        o.cfg.Prompt,
	}
	res, err := o.cfg.Describer.Describe(ctx, payload, opts)
	if err != nil {
		report.recordFailure(o.cfg.Input, "", classifyNodeErr(err), err)
		return nil
	}

	target := write.TargetFor(o.cfg.Task, true, o.cfg.Output, o.cfg.MathMLVersion)
	if _, err := o.writer.Apply(nil, nil, target, res); err != nil {
		report.recordFailure(o.cfg.Input, "", classifyNodeErr(err), err)
		return nil
	}

	report.Written++
	report.Saved = true
	o.logger.Info("output written", "path", o.cfg.Output)
	return nil
}

// classifyNodeErr maps a per-node error onto the report taxonomy.
func classifyNodeErr(err error) string {
	var ee *extract.Error
	if errors.As(err, &ee) {
		return "extraction"
	}
	var se *describe.ServiceError
	if errors.As(err, &se) {
		return "description:" + string(se.Reason)
	}
	var we *write.Error
	if errors.As(err, &we) {
		return "write"
	}
	return "internal"
}

// dedupe enforces at-most-once processing per node ID while preserving
// traversal order.
func dedupe(nodes []doc.Node) []doc.Node {
	seen := make(map[string]bool, len(nodes))
	out := nodes[:0]
	for _, n := range nodes {
		if seen[n.ID()] {
			continue
		}
		seen[n.ID()] = true
		out = append(out, n)
	}
	return out
}
