// Package mode resolves the operating mode from the input/output file
// extension pairing, once at startup.
package mode

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jackzampolin/doctag/internal/describe"
)

// Mode is one of the three operating shapes.
type Mode int

const (
	// Document runs the full pipeline on a tagged document and writes the
	// edited document back.
	Document Mode = iota
	// Image runs on a single standalone image; the output is a text or
	// markup file.
	Image
	// Markup runs on a standalone markup snippet; the output is a text file.
	Markup
)

func (m Mode) String() string {
	switch m {
	case Document:
		return "document"
	case Image:
		return "image"
	case Markup:
		return "markup"
	}
	return "unknown"
}

// Standalone reports whether the mode processes a single synthetic node
// without tree traversal.
func (m Mode) Standalone() bool { return m != Document }

// UnsupportedModeError is fatal: it aborts the run before any processing.
type UnsupportedModeError struct {
	Task   describe.Task
	Input  string
	Output string
}

func (e *UnsupportedModeError) Error() string {
	return fmt.Sprintf("unsupported file combination for %s (%s -> %s); see --help for supported pairings",
		e.Task, ext(e.Input), ext(e.Output))
}

var imageExtRE = regexp.MustCompile(`(?i)^\.(jpg|jpeg|png|gif|bmp|tif|tiff|webp)$`)

// Detect resolves the mode for a task and input/output pair.
//
// Supported pairings:
//
//	pdf  -> pdf          any task
//	image -> txt         alt text, table summary
//	image -> xml         mathml
//	xml  -> txt          alt text
func Detect(task describe.Task, input, output string) (Mode, error) {
	in := ext(input)
	out := ext(output)

	switch {
	case in == ".pdf" && out == ".pdf":
		return Document, nil
	case imageExtRE.MatchString(in) && out == ".txt":
		if task == describe.TaskAltText || task == describe.TaskTableSummary {
			return Image, nil
		}
	case imageExtRE.MatchString(in) && out == ".xml":
		if task == describe.TaskMathML {
			return Image, nil
		}
	case in == ".xml" && out == ".txt":
		if task == describe.TaskAltText {
			return Markup, nil
		}
	}
	return 0, &UnsupportedModeError{Task: task, Input: input, Output: output}
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
