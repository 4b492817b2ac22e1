package audit

import "time"

// Action classifies audit events emitted by the orchestration core.
type Action string

const (
	ActionExecutionStarted  Action = "execution_started"
	ActionExecutionFinished Action = "execution_finished"
	ActionCheckCompleted    Action = "check_completed"
	ActionCheckFailed       Action = "check_failed"
	ActionDecisionMade      Action = "decision_made"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out. Check events are keyed
// by customer + check type + timestamp; they are write-only from the
// checks' perspective and never read back into decisions.
type Event struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	CustomerID  string    `json:"customer_id"`
	ExecutionID string    `json:"execution_id,omitempty"`
	CheckType   string    `json:"check_type,omitempty"`
	Provider    string    `json:"provider,omitempty"`
	Action      Action    `json:"action"`
	Outcome     string    `json:"outcome,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}
