package executor

import "context"

// TaskSpec is the task the local agent is asked to execute.
type TaskSpec struct {
	TaskID       string
	Description  string
	Requirements []string
	Category     string
	Payload      map[string]interface{}
}

// ExecutionResult is what the agent adapter produces for a completed
// task. The core treats OutputBytes as opaque and hashes it with BLAKE3
// to yield the result_hash carried in task.completed (spec §6).
type ExecutionResult struct {
	OutputBytes []byte
	Metadata    map[string]interface{}
}

// VerificationResult is the agent adapter's self-verification outcome
// (Tier 2) or one vote in a Tier-3 quorum (spec §4.9).
type VerificationResult struct {
	Passed bool
	Score  float64
	Reason string
}

// Agent is the capability abstraction over the actual LLM/automation
// backend performing tasks (spec §6). The core never inspects output
// semantics.
type Agent interface {
	CanHandle(spec TaskSpec) bool
	Estimate(spec TaskSpec) (seconds int, err error)
	Execute(ctx context.Context, spec TaskSpec) (ExecutionResult, error)
	Verify(ctx context.Context, spec TaskSpec, result ExecutionResult) (VerificationResult, error)
	GenerateContent(ctx context.Context, prompt string) ([]byte, error)
}
