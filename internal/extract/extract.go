// Package extract turns a matched node, or a standalone input file, into the
// payload the description service needs.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/jackzampolin/doctag/internal/describe"
	"github.com/jackzampolin/doctag/internal/doc"
)

// Error is a per-node extraction failure. The node is reported failed and
// processing continues with the next node.
type Error struct {
	NodeID string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extract %s: %s", e.NodeID, e.Reason)
	}
	return fmt.Sprintf("extract %s: %s: %v", e.NodeID, e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config configures an Extractor.
type Config struct {
	// DPI is the fixed target resolution for rasterized regions.
	DPI float64

	// ContextRadius is how many sibling tags on each side of the node are
	// harvested into the prompt context. 0 disables surrounding context.
	ContextRadius int

	Logger *slog.Logger
}

// Extractor produces description payloads.
type Extractor struct {
	dpi    float64
	radius int
	logger *slog.Logger
}

// New creates an Extractor.
func New(cfg Config) *Extractor {
	if cfg.DPI == 0 {
		cfg.DPI = 150
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		dpi:    cfg.DPI,
		radius: cfg.ContextRadius,
		logger: logger.With("component", "extract"),
	}
}

// FromNode builds the payload for a document node by rasterizing its
// bounding region.
func (e *Extractor) FromNode(ctx context.Context, d doc.Document, n doc.Node, task describe.Task) (*describe.Payload, error) {
	region, ok := d.BoundingRegion(n)
	if !ok {
		return nil, &Error{NodeID: n.ID(), Reason: "cannot determine bounding region"}
	}
	if region.Empty() {
		return nil, &Error{NodeID: n.ID(), Reason: "zero-area bounding region"}
	}

	img, err := d.Rasterize(ctx, region, e.dpi)
	if err != nil {
		return nil, &Error{NodeID: n.ID(), Reason: "rasterization failed", Err: err}
	}

	p := &describe.Payload{
		Task:     task,
		Image:    img,
		MIMEType: "image/jpeg",
	}

	// For formulas an existing alt text is a useful hint alongside the image.
	if task == describe.TaskMathML {
		if alt, ok := d.Attribute(n, doc.AttrAlt); ok && alt != "" {
			p.Hint = alt
		}
	}

	if e.radius > 0 {
		if cx := surroundings(d, n, e.radius); cx != "" {
			p.Context = cx
		}
	}

	e.logger.Debug("extracted node payload",
		"node", n.ID(), "page", region.Page+1, "bytes", len(img), "context", p.Context != "")
	return p, nil
}

// FromImageFile builds the payload for a standalone image input. The file
// bytes are the payload directly; no document collaborator is involved.
func (e *Extractor) FromImageFile(path string, task describe.Task) (*describe.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{NodeID: path, Reason: "failed to read image", Err: err}
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, &Error{NodeID: path, Reason: fmt.Sprintf("input is %s, not an image", mt.String())}
	}
	return &describe.Payload{
		Task:     task,
		Image:    data,
		MIMEType: mt.String(),
	}, nil
}

// FromMarkupFile builds the payload for a standalone markup input, used to
// produce a textual description of a markup formula.
func (e *Extractor) FromMarkupFile(path string, task describe.Task) (*describe.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{NodeID: path, Reason: "failed to read markup", Err: err}
	}
	markup := strings.TrimSpace(string(data))
	if markup == "" {
		return nil, &Error{NodeID: path, Reason: "markup input is empty"}
	}
	return &describe.Payload{
		Task:   task,
		Markup: markup,
	}, nil
}
