// Package status serves point-in-time snapshots of onboarding executions so
// clients can poll for progress instead of holding a connection open for the
// whole workflow.
package status

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"onboard/internal/domain"
	"onboard/internal/verification"
	"onboard/internal/workflow"
	dErrors "onboard/pkg/domain-errors"
	"onboard/pkg/platform/sentinel"
)

// Response is the wire shape of one execution snapshot. Verification results
// are serialized in canonical check order; checks that have not reported yet
// are simply absent.
type Response struct {
	ExecutionID         string                       `json:"execution_id"`
	Status              domain.ExecutionStatus       `json:"status"`
	CurrentStage        domain.Stage                 `json:"current_stage"`
	CompletedStages     []domain.Stage               `json:"completed_stages"`
	VerificationResults []domain.VerificationResult  `json:"verification_results,omitempty"`
	PartialFailures     []domain.CheckError          `json:"partial_failures,omitempty"`
	Decision            *domain.Decision             `json:"decision,omitempty"`
	Error               string                       `json:"error,omitempty"`
	StartedAt           time.Time                    `json:"started_at"`
	LastUpdatedAt       time.Time                    `json:"last_updated_at"`
}

// Service reads execution snapshots. It shares the execution store with the
// workflow driver but never writes to it.
type Service struct {
	executions workflow.ExecutionStore
	logger     *slog.Logger
}

func NewService(executions workflow.ExecutionStore, logger *slog.Logger) *Service {
	return &Service{executions: executions, logger: logger}
}

// Get returns the current snapshot for an execution. Terminal snapshots are
// immutable, so repeated reads after completion always return the same
// response. Clients typically poll this every few seconds until the status
// turns terminal; the service itself imposes no cadence.
func (s *Service) Get(ctx context.Context, executionID string) (*Response, error) {
	state, err := s.executions.FindExecution(ctx, executionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "execution not found")
		}
		s.logger.ErrorContext(ctx, "execution lookup failed", "execution_id", executionID, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load execution")
	}
	return fromState(state), nil
}

func fromState(state *domain.ExecutionState) *Response {
	outcome := verification.Outcome{Results: state.VerificationResults}
	resp := &Response{
		ExecutionID:         state.ID,
		Status:              state.Status,
		CurrentStage:        state.CurrentStage,
		CompletedStages:     state.CompletedStages,
		VerificationResults: outcome.Ordered(),
		PartialFailures:     state.PartialFailures,
		Decision:            state.Decision,
		Error:               state.Error,
		StartedAt:           state.CreatedAt,
		LastUpdatedAt:       state.LastUpdatedAt,
	}
	return resp
}
