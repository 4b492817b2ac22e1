package domain

import "time"

// Stage is one discrete phase of the onboarding workflow.
type Stage string

const (
	StageCreated              Stage = "CREATED"
	StageIdentityVerification Stage = "IDENTITY_VERIFICATION"
	StageBankLink             Stage = "BANK_LINK"
	StageParallelVerification Stage = "PARALLEL_VERIFICATION"
	StageDecision             Stage = "DECISION"
)

// ExecutionStatus is the terminal-status dimension of an execution. It
// transitions RUNNING -> {SUCCEEDED, FAILED, TIMED_OUT, ABORTED} exactly
// once and never backward.
type ExecutionStatus string

const (
	StatusRunning   ExecutionStatus = "RUNNING"
	StatusSucceeded ExecutionStatus = "SUCCEEDED"
	StatusFailed    ExecutionStatus = "FAILED"
	StatusTimedOut  ExecutionStatus = "TIMED_OUT"
	StatusAborted   ExecutionStatus = "ABORTED"
)

// IsTerminal reports whether no further transition can occur.
func (s ExecutionStatus) IsTerminal() bool {
	return s != StatusRunning && s != ""
}

// ExecutionState is the durable record of a running or completed onboarding
// execution. It is mutated only by the single workflow driver that owns the
// execution; everyone else reads point-in-time copies.
type ExecutionState struct {
	ID                  string                           `json:"id"`
	ApplicationID       string                           `json:"application_id"`
	CustomerID          string                           `json:"customer_id"`
	CurrentStage        Stage                            `json:"current_stage"`
	CompletedStages     []Stage                          `json:"completed_stages"`
	VerificationResults map[CheckName]VerificationResult `json:"verification_results"`
	PartialFailures     []CheckError                     `json:"partial_failures,omitempty"`
	Decision            *Decision                        `json:"decision,omitempty"`
	Status              ExecutionStatus                  `json:"status"`
	Error               string                           `json:"error,omitempty"`
	CreatedAt           time.Time                        `json:"created_at"`
	LastUpdatedAt       time.Time                        `json:"last_updated_at"`
}

// NewExecutionState builds the initial snapshot for a freshly started
// execution.
func NewExecutionState(id, applicationID, customerID string, now time.Time) *ExecutionState {
	return &ExecutionState{
		ID:                  id,
		ApplicationID:       applicationID,
		CustomerID:          customerID,
		CurrentStage:        StageCreated,
		CompletedStages:     []Stage{},
		VerificationResults: make(map[CheckName]VerificationResult),
		Status:              StatusRunning,
		CreatedAt:           now,
		LastUpdatedAt:       now,
	}
}

// Advance marks the current stage complete and moves to next. The completed
// stage is appended before CurrentStage changes so a point-in-time reader
// never observes an advanced stage without the prior one recorded. Appending
// is idempotent per stage: a stage already present is never duplicated.
func (e *ExecutionState) Advance(next Stage, now time.Time) {
	e.appendCompleted(e.CurrentStage)
	e.CurrentStage = next
	e.LastUpdatedAt = now
}

// Terminate completes the current stage and fixes the terminal status. It is
// a no-op when the execution is already terminal, preserving the
// single-transition invariant.
func (e *ExecutionState) Terminate(status ExecutionStatus, errMsg string, now time.Time) {
	if e.Status.IsTerminal() {
		return
	}
	e.appendCompleted(e.CurrentStage)
	e.Status = status
	e.Error = errMsg
	e.LastUpdatedAt = now
}

func (e *ExecutionState) appendCompleted(stage Stage) {
	for _, s := range e.CompletedStages {
		if s == stage {
			return
		}
	}
	e.CompletedStages = append(e.CompletedStages, stage)
}

// RecordResults merges the coordinator output into the snapshot. Each check's
// result is written at most once.
func (e *ExecutionState) RecordResults(results map[CheckName]VerificationResult, failures []CheckError) {
	for name, r := range results {
		if _, exists := e.VerificationResults[name]; !exists {
			e.VerificationResults[name] = r
		}
	}
	e.PartialFailures = append(e.PartialFailures, failures...)
}

// Clone returns a deep copy so stores can hand out snapshots without
// exposing driver-owned state.
func (e *ExecutionState) Clone() *ExecutionState {
	cp := *e
	cp.CompletedStages = append([]Stage{}, e.CompletedStages...)
	cp.VerificationResults = make(map[CheckName]VerificationResult, len(e.VerificationResults))
	for name, r := range e.VerificationResults {
		if r.History != nil {
			h := *r.History
			r.History = &h
		}
		r.Factors = append([]string(nil), r.Factors...)
		cp.VerificationResults[name] = r
	}
	cp.PartialFailures = append([]CheckError{}, e.PartialFailures...)
	if e.Decision != nil {
		d := *e.Decision
		d.Reasons = append([]string{}, e.Decision.Reasons...)
		d.NextSteps = append([]string{}, e.Decision.NextSteps...)
		cp.Decision = &d
	}
	return &cp
}
