package pipeline

import "time"

// NodeFailure records one failed node for the run report.
type NodeFailure struct {
	NodeID string `json:"node" yaml:"node"`
	Tag    string `json:"tag,omitempty" yaml:"tag,omitempty"`
	Reason string `json:"reason" yaml:"reason"`
	Error  string `json:"error" yaml:"error"`
}

// Report is the aggregate outcome of one run. The written, skipped, and
// failed counts partition the matched set exactly.
type Report struct {
	RunID  string `json:"run_id" yaml:"run_id"`
	Task   string `json:"task" yaml:"task"`
	Mode   string `json:"mode" yaml:"mode"`
	Input  string `json:"input" yaml:"input"`
	Output string `json:"output" yaml:"output"`

	StartedAt      time.Time `json:"started_at" yaml:"started_at"`
	ElapsedSeconds float64   `json:"elapsed_seconds" yaml:"elapsed_seconds"`

	Matched int `json:"matched" yaml:"matched"`
	Written int `json:"written" yaml:"written"`
	Skipped int `json:"skipped" yaml:"skipped"`
	Failed  int `json:"failed" yaml:"failed"`

	// Saved reports whether the document (or standalone output) was
	// persisted.
	Saved bool `json:"saved" yaml:"saved"`

	Failures []NodeFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Success reports the overall run outcome: the run fails only when zero
// nodes were written and at least one node failed. A run with only skips, or
// with zero matches, is a successful no-op.
func (r *Report) Success() bool {
	return r.Written > 0 || r.Failed == 0
}

func (r *Report) recordFailure(nodeID, tag, reason string, err error) {
	r.Failed++
	r.Failures = append(r.Failures, NodeFailure{
		NodeID: nodeID,
		Tag:    tag,
		Reason: reason,
		Error:  err.Error(),
	})
}
