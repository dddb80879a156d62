// Package describe abstracts the external description-generation service.
// It is the only package that talks to the network; the orchestrator treats
// it as a fallible black box and never retries a failed call itself.
package describe

import (
	"context"
	"fmt"
)

// Task selects the kind of description to generate. Values match the CLI
// subcommand names.
type Task string

const (
	TaskAltText      Task = "generate-alt-text"
	TaskTableSummary Task = "generate-table-summary"
	TaskMathML       Task = "generate-mathml"
)

// Valid reports whether t names a known task.
func (t Task) Valid() bool {
	switch t {
	case TaskAltText, TaskTableSummary, TaskMathML:
		return true
	}
	return false
}

// Payload is the material sent to the service for one node. Exactly one of
// Image or Markup is set.
type Payload struct {
	Task Task

	// Image content and its MIME type (rendered region or standalone file).
	Image    []byte
	MIMEType string

	// Markup holds existing markup text used as the question itself.
	Markup string

	// Context is an optional JSON block describing the tags surrounding the
	// node, appended to the prompt.
	Context string

	// Hint carries existing descriptive text for the node, when available.
	Hint string
}

// Result is the service's answer, tagged with the task it answers.
type Result struct {
	Task      Task
	Content   string
	Model     string
	RequestID string
}

// Options are per-run parameters for a description request.
type Options struct {
	// Language for the generated text (BCP 47 / ISO 639-1 code).
	Language string

	// MathMLVersion selects the markup dialect for TaskMathML.
	MathMLVersion string

	// Prompt overrides the built-in prompt. Either the prompt text itself
	// or a path to a file containing it.
	Prompt string
}

// Client generates descriptions.
type Client interface {
	Describe(ctx context.Context, p *Payload, opts Options) (*Result, error)
}

// Reason classifies a service failure.
type Reason string

const (
	ReasonAuth      Reason = "authentication"
	ReasonRateLimit Reason = "rate_limit"
	ReasonMalformed Reason = "malformed_response"
	ReasonUnknown   Reason = "unknown"
)

// ServiceError is a classified failure from the description service. It
// fails only the node being processed, never the run.
type ServiceError struct {
	Reason Reason
	Err    error
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("description service: %s", e.Reason)
	}
	return fmt.Sprintf("description service (%s): %v", e.Reason, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }
