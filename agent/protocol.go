// Package agent defines the uniform Agent Protocol every
// stage handler satisfies: a phased state machine driven by execute/
// handle_feedback, returning a structured Result the orchestrator merges
// into session context.
package agent

import "context"

// Status is an agent's lifecycle state.
type Status string

const (
	StatusIdle            Status = "IDLE"
	StatusRunning         Status = "RUNNING"
	StatusWaitingFeedback Status = "WAITING_FEEDBACK"
	StatusCompleted       Status = "COMPLETED"
	StatusError           Status = "ERROR"
)

// Result is returned by every agent call.
type Result struct {
	Success       bool
	Step          string // stable identifier for client routing
	Message       string // user-facing text, may include markdown
	Images        []string
	NeedsFeedback bool // true: orchestrator must wait for the next message
	Data          map[string]any
	Status        Status
}

// Input is the merge of session context and stage-specific overrides
// passed to Execute.
type Input map[string]any

// Agent is the uniform contract every stage handler satisfies.
type Agent interface {
	// Execute is called once when the stage becomes active.
	Execute(ctx context.Context, input Input) (Result, error)

	// HandleFeedback is called on every subsequent user message until
	// the agent's status becomes COMPLETED (or an upstream skip).
	HandleFeedback(ctx context.Context, text string, images []string) (Result, error)

	// StatusNow reports the agent's current lifecycle state.
	StatusNow() Status
}
