// Package write commits description results to their destinations: a node
// attribute, an associated file on a node, or a standalone output file.
package write

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jackzampolin/doctag/internal/describe"
	"github.com/jackzampolin/doctag/internal/doc"
)

// Status is the terminal outcome of one write.
type Status string

const (
	StatusWritten Status = "written"
	StatusSkipped Status = "skipped"
)

// Error is a per-node write failure. The node is reported failed; the run
// continues.
type Error struct {
	Target string
	Err    error
}

func (e *Error) Error() string { return fmt.Sprintf("write %s: %v", e.Target, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// TargetKind selects the destination variant.
type TargetKind int

const (
	// TargetAttribute writes the result onto a node attribute.
	TargetAttribute TargetKind = iota
	// TargetAssociatedFile attaches the result as an associated file.
	TargetAssociatedFile
	// TargetFile writes the result as the sole content of an output file.
	TargetFile
)

// Target is the destination for one node's result. Exactly one target is
// derived per matched node per run.
type Target struct {
	Kind    TargetKind
	AttrKey string // TargetAttribute
	Role    string // TargetAssociatedFile
	Path    string // TargetFile
}

// TargetFor derives the destination from the task and mode. standalone is
// true outside document mode, where the single output file is expected.
func TargetFor(task describe.Task, standalone bool, outputPath, mathmlVersion string) Target {
	if standalone {
		return Target{Kind: TargetFile, Path: outputPath}
	}
	switch task {
	case describe.TaskTableSummary:
		return Target{Kind: TargetAttribute, AttrKey: doc.AttrSummary}
	case describe.TaskMathML:
		return Target{Kind: TargetAssociatedFile, Role: mathmlVersion}
	default:
		return Target{Kind: TargetAttribute, AttrKey: doc.AttrAlt}
	}
}

// Config configures a Writer.
type Config struct {
	// Overwrite replaces existing attribute values instead of skipping.
	Overwrite bool

	Logger *slog.Logger
}

// Writer applies results to targets honoring the overwrite policy.
type Writer struct {
	overwrite bool
	logger    *slog.Logger
}

// New creates a Writer.
func New(cfg Config) *Writer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		overwrite: cfg.Overwrite,
		logger:    logger.With("component", "write"),
	}
}

// Apply commits one result. d and n may be nil for TargetFile.
func (w *Writer) Apply(d doc.Document, n doc.Node, t Target, res *describe.Result) (Status, error) {
	switch t.Kind {
	case TargetAttribute:
		return w.applyAttribute(d, n, t.AttrKey, res)
	case TargetAssociatedFile:
		return w.applyAssociatedFile(d, n, t.Role, res)
	case TargetFile:
		return w.applyFile(t.Path, res)
	}
	return "", &Error{Target: "unknown", Err: fmt.Errorf("unknown target kind %d", t.Kind)}
}

// HasExistingValue reports whether the target already carries a value that
// the overwrite policy would preserve. The orchestrator consults this before
// extraction so skipped nodes never reach the description service.
func (w *Writer) HasExistingValue(d doc.Document, n doc.Node, t Target) bool {
	if w.overwrite || t.Kind != TargetAttribute {
		return false
	}
	cur, ok := d.Attribute(n, t.AttrKey)
	return ok && cur != ""
}

func (w *Writer) applyAttribute(d doc.Document, n doc.Node, key string, res *describe.Result) (Status, error) {
	if cur, ok := d.Attribute(n, key); ok && cur != "" && !w.overwrite {
		w.logger.Debug("attribute already set, skipping", "node", n.ID(), "attr", key)
		return StatusSkipped, nil
	}
	if err := d.SetAttribute(n, key, res.Content); err != nil {
		return "", &Error{Target: fmt.Sprintf("%s attribute on %s", key, n.ID()), Err: err}
	}
	w.logger.Debug("attribute written", "node", n.ID(), "attr", key, "chars", len(res.Content))
	return StatusWritten, nil
}

func (w *Writer) applyAssociatedFile(d doc.Document, n doc.Node, role string, res *describe.Result) (Status, error) {
	// Associated files do not consult the overwrite policy: an existing file
	// of the same role is replaced by the collaborator.
	err := d.AttachFile(n, role, []byte(res.Content), "application/mathml+xml")
	if err != nil {
		return "", &Error{Target: fmt.Sprintf("associated file %s on %s", role, n.ID()), Err: err}
	}
	w.logger.Debug("associated file written", "node", n.ID(), "role", role, "bytes", len(res.Content))
	return StatusWritten, nil
}

func (w *Writer) applyFile(path string, res *describe.Result) (Status, error) {
	if err := os.WriteFile(path, []byte(res.Content), 0o644); err != nil {
		return "", &Error{Target: path, Err: err}
	}
	w.logger.Debug("output file written", "path", path, "bytes", len(res.Content))
	return StatusWritten, nil
}
