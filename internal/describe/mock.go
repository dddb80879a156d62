package describe

import (
	"context"
	"fmt"
	"sync/atomic"
)

// MockClient is a Client for testing.
type MockClient struct {
	// Configurable behavior
	ResponseText string
	Err          error

	// FailOn makes the Nth call (1-based) fail with Err while others
	// succeed. 0 means Err (when set) applies to every call.
	FailOn int

	// State
	requestCount atomic.Int64
	Payloads     []*Payload
	Opts         []Options
}

// NewMockClient creates a mock client with a canned response.
func NewMockClient() *MockClient {
	return &MockClient{ResponseText: "mock description"}
}

// Requests returns how many calls were made.
func (c *MockClient) Requests() int { return int(c.requestCount.Load()) }

// Describe records the call and returns the canned result or error.
func (c *MockClient) Describe(ctx context.Context, p *Payload, opts Options) (*Result, error) {
	n := c.requestCount.Add(1)
	c.Payloads = append(c.Payloads, p)
	c.Opts = append(c.Opts, opts)

	if c.Err != nil && (c.FailOn == 0 || int(n) == c.FailOn) {
		return nil, c.Err
	}
	return &Result{
		Task:      p.Task,
		Content:   c.ResponseText,
		Model:     "mock",
		RequestID: fmt.Sprintf("mock-%d", n),
	}, nil
}

// Verify interface
var _ Client = (*MockClient)(nil)
