// Package workflow implements the onboarding orchestration core: a durable
// state machine that drives each application through identity verification,
// bank linking, the parallel verification fan-out and the final decision,
// persisting a snapshot after every transition.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"onboard/internal/audit"
	"onboard/internal/capability"
	"onboard/internal/decision"
	"onboard/internal/domain"
	"onboard/internal/verification"
	"onboard/internal/workflow/metrics"
	dErrors "onboard/pkg/domain-errors"
	"onboard/pkg/platform/sentinel"
)

// Verifier runs the parallel verification fan-out. Satisfied by
// *verification.Coordinator.
type Verifier interface {
	RunAll(ctx context.Context, executionID, customerID string, profile domain.Profile) *verification.Outcome
}

// Trail records workflow lifecycle events for the audit trail.
type Trail interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Timeouts bounds each workflow stage independently.
type Timeouts struct {
	Identity     time.Duration
	BankLink     time.Duration
	Verification time.Duration
	Decision     time.Duration
}

// Budget is the overall execution deadline: the sum of the stage bounds. An
// execution that exhausts it is terminated TIMED_OUT rather than left
// running forever.
func (t Timeouts) Budget() time.Duration {
	return t.Identity + t.BankLink + t.Verification + t.Decision
}

// DefaultTimeouts mirror the stage bounds the workflow ships with.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Identity:     30 * time.Second,
		BankLink:     30 * time.Second,
		Verification: 30 * time.Second,
		Decision:     10 * time.Second,
	}
}

// Deps collects the collaborators the Service drives.
type Deps struct {
	Executions   ExecutionStore
	Applications ApplicationStore
	Identity     capability.IdentityVerifier
	BankLinker   capability.BankLinker
	Verifier     Verifier
	Trail        Trail
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	Timeouts     Timeouts
}

// Service is the workflow driver. Each execution is owned by exactly one run
// goroutine; all other parties (status reads, aborts) interact through the
// store, where the terminal transition is settled exactly once.
type Service struct {
	executions   ExecutionStore
	applications ApplicationStore
	identity     capability.IdentityVerifier
	bankLinker   capability.BankLinker
	verifier     Verifier
	trail        Trail
	logger       *slog.Logger
	metrics      *metrics.Metrics
	timeouts     Timeouts
	tracer       trace.Tracer

	// cancel funcs for in-flight runs, keyed by execution ID
	running sync.Map

	// wall clock, swappable in tests
	now func() time.Time
}

func NewService(deps Deps) *Service {
	if deps.Timeouts == (Timeouts{}) {
		deps.Timeouts = DefaultTimeouts()
	}
	return &Service{
		executions:   deps.Executions,
		applications: deps.Applications,
		identity:     deps.Identity,
		bankLinker:   deps.BankLinker,
		verifier:     deps.Verifier,
		trail:        deps.Trail,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
		timeouts:     deps.Timeouts,
		tracer:       otel.Tracer("onboard/workflow"),
		now:          time.Now,
	}
}

// Start validates the request, persists the application and the initial
// execution snapshot, and launches the driver goroutine. It returns as soon
// as the execution is durably created; progress is observed via the status
// endpoint.
func (s *Service) Start(ctx context.Context, req *StartRequest) (*StartResult, error) {
	// The transport layer validates too, but nothing may be persisted for a
	// request that fails validation no matter who calls us.
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := s.now()

	app := &domain.Application{
		ID:         uuid.NewString(),
		CustomerID: req.CustomerID,
		Profile:    req.Profile,
		CreatedAt:  now,
	}
	if err := s.applications.CreateApplication(ctx, app); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create application")
	}

	state := domain.NewExecutionState(uuid.NewString(), app.ID, app.CustomerID, now)
	if err := s.executions.CreateExecution(ctx, state); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "execution already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create execution")
	}

	s.metrics.IncExecutionsStarted()
	s.emit(ctx, audit.Event{
		CustomerID:  state.CustomerID,
		ExecutionID: state.ID,
		Action:      audit.ActionExecutionStarted,
		Outcome:     string(domain.StatusRunning),
	})
	s.logger.InfoContext(ctx, "execution started",
		"execution_id", state.ID,
		"application_id", app.ID,
		"customer_id", app.CustomerID,
	)

	// The run outlives the HTTP request that started it. It inherits the
	// request's values (trace context, request ID) but not its cancellation,
	// and is bounded by the overall budget instead.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeouts.Budget())
	s.running.Store(state.ID, cancel)

	go func() {
		defer cancel()
		defer s.running.Delete(state.ID)
		s.run(runCtx, state, req.BankLinkToken)
	}()

	return &StartResult{
		ExecutionID:   state.ID,
		ApplicationID: app.ID,
		Status:        domain.StatusRunning,
		StartedAt:     now,
	}, nil
}

// Abort terminates a running execution. The terminal write settles against
// the driver at the store; an execution already terminal is a conflict.
func (s *Service) Abort(ctx context.Context, executionID string) (*domain.ExecutionState, error) {
	state, err := s.executions.FindExecution(ctx, executionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "execution not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load execution")
	}
	if state.Status.IsTerminal() {
		return nil, dErrors.New(dErrors.CodeConflict, "execution already finished")
	}

	state.Terminate(domain.StatusAborted, "aborted by operator", s.now())
	if err := s.executions.SaveExecution(ctx, state); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			// The driver finished first.
			return nil, dErrors.New(dErrors.CodeConflict, "execution already finished")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save execution")
	}

	if cancel, ok := s.running.LoadAndDelete(executionID); ok {
		cancel.(context.CancelFunc)()
	}

	s.metrics.IncExecutionsFinished(string(domain.StatusAborted))
	s.emit(ctx, audit.Event{
		CustomerID:  state.CustomerID,
		ExecutionID: state.ID,
		Action:      audit.ActionExecutionFinished,
		Outcome:     string(domain.StatusAborted),
	})
	s.logger.InfoContext(ctx, "execution aborted", "execution_id", state.ID)

	return state.Clone(), nil
}

// run drives one execution through its stages. Every transition is persisted
// before the next stage begins, so a reader always observes a consistent
// prefix of the workflow.
func (s *Service) run(ctx context.Context, state *domain.ExecutionState, bankLinkToken string) {
	ctx, span := s.tracer.Start(ctx, "workflow.run",
		trace.WithAttributes(attribute.String("execution_id", state.ID)))
	defer span.End()

	app, err := s.applications.FindApplication(ctx, state.ApplicationID)
	if err != nil {
		s.finish(ctx, state, domain.StatusFailed, "application not found")
		return
	}

	if !s.stageIdentity(ctx, state, app.Profile) {
		return
	}
	if !s.stageBankLink(ctx, state, bankLinkToken) {
		return
	}
	if !s.stageVerification(ctx, state, app.Profile) {
		return
	}
	s.stageDecision(ctx, state)
}

func (s *Service) stageIdentity(ctx context.Context, state *domain.ExecutionState, profile domain.Profile) bool {
	if !s.advance(ctx, state, domain.StageIdentityVerification) {
		return false
	}
	ctx, span := s.tracer.Start(ctx, "workflow.identity_verification")
	defer span.End()

	stageCtx, cancel := context.WithTimeout(ctx, s.timeouts.Identity)
	defer cancel()

	start := s.now()
	result, err := s.identity.VerifyIdentity(stageCtx, profile)
	s.metrics.ObserveStageDuration(string(domain.StageIdentityVerification), s.now().Sub(start))

	switch {
	case err != nil:
		s.finish(ctx, state, s.failureStatus(stageCtx, err), "identity verification failed: "+err.Error())
		return false
	case !result.Verified:
		s.finish(ctx, state, domain.StatusFailed, "identity verification failed: "+result.Detail)
		return false
	}
	return true
}

func (s *Service) stageBankLink(ctx context.Context, state *domain.ExecutionState, publicToken string) bool {
	if !s.advance(ctx, state, domain.StageBankLink) {
		return false
	}
	ctx, span := s.tracer.Start(ctx, "workflow.bank_link")
	defer span.End()

	stageCtx, cancel := context.WithTimeout(ctx, s.timeouts.BankLink)
	defer cancel()

	start := s.now()
	if publicToken == "" {
		token, err := s.bankLinker.CreateLinkToken(stageCtx, state.CustomerID)
		if err != nil {
			s.finish(ctx, state, s.failureStatus(stageCtx, err), "bank link failed: "+err.Error())
			return false
		}
		publicToken = token
	}
	if _, err := s.bankLinker.LinkAccount(stageCtx, publicToken); err != nil {
		s.metrics.ObserveStageDuration(string(domain.StageBankLink), s.now().Sub(start))
		s.finish(ctx, state, s.failureStatus(stageCtx, err), "bank link failed: "+err.Error())
		return false
	}
	s.metrics.ObserveStageDuration(string(domain.StageBankLink), s.now().Sub(start))
	return true
}

func (s *Service) stageVerification(ctx context.Context, state *domain.ExecutionState, profile domain.Profile) bool {
	if !s.advance(ctx, state, domain.StageParallelVerification) {
		return false
	}
	ctx, span := s.tracer.Start(ctx, "workflow.parallel_verification")
	defer span.End()

	start := s.now()
	outcome := s.verifier.RunAll(ctx, state.ID, state.CustomerID, profile)
	s.metrics.ObserveStageDuration(string(domain.StageParallelVerification), s.now().Sub(start))

	state.RecordResults(outcome.Results, outcome.Failures)
	state.LastUpdatedAt = s.now()
	return s.persist(ctx, state)
}

func (s *Service) stageDecision(ctx context.Context, state *domain.ExecutionState) {
	if !s.advance(ctx, state, domain.StageDecision) {
		return
	}
	ctx, span := s.tracer.Start(ctx, "workflow.decision")
	defer span.End()

	d := decision.Decide(state.VerificationResults, s.now())
	state.Decision = &d

	s.metrics.IncDecisionOutcome(string(d.Status))
	s.emit(ctx, audit.Event{
		CustomerID:  state.CustomerID,
		ExecutionID: state.ID,
		Action:      audit.ActionDecisionMade,
		Outcome:     string(d.Status),
	})
	s.logger.InfoContext(ctx, "decision made",
		"execution_id", state.ID,
		"status", d.Status,
		"reasons", d.Reasons,
	)

	// The workflow succeeded whenever it produced a decision; a declined
	// application is still a successful execution.
	s.finish(ctx, state, domain.StatusSucceeded, "")
}

// advance moves the state machine forward and persists the snapshot. A false
// return means the driver lost ownership (budget exhausted or someone else
// landed the terminal write) and must stop.
func (s *Service) advance(ctx context.Context, state *domain.ExecutionState, next domain.Stage) bool {
	if err := ctx.Err(); err != nil {
		s.finish(ctx, state, s.failureStatus(ctx, err), "execution budget exhausted before "+string(next))
		return false
	}
	state.Advance(next, s.now())
	return s.persist(ctx, state)
}

func (s *Service) persist(ctx context.Context, state *domain.ExecutionState) bool {
	if err := s.executions.SaveExecution(ctx, state); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			s.logger.InfoContext(ctx, "execution settled elsewhere, driver stopping",
				"execution_id", state.ID,
				"stage", state.CurrentStage,
			)
			return false
		}
		s.logger.ErrorContext(ctx, "snapshot persist failed",
			"execution_id", state.ID,
			"stage", state.CurrentStage,
			"error", err,
		)
		s.finish(ctx, state, domain.StatusFailed, "snapshot persist failed")
		return false
	}
	return true
}

// finish lands the terminal transition. The store arbitrates concurrent
// settlement; losing the race is not an error.
func (s *Service) finish(ctx context.Context, state *domain.ExecutionState, status domain.ExecutionStatus, errMsg string) {
	state.Terminate(status, errMsg, s.now())
	if err := s.executions.SaveExecution(ctx, state); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return
		}
		s.logger.ErrorContext(ctx, "terminal persist failed",
			"execution_id", state.ID,
			"status", status,
			"error", err,
		)
		return
	}

	s.metrics.IncExecutionsFinished(string(status))
	s.emit(ctx, audit.Event{
		CustomerID:  state.CustomerID,
		ExecutionID: state.ID,
		Action:      audit.ActionExecutionFinished,
		Outcome:     string(status),
		Detail:      errMsg,
	})
	s.logger.InfoContext(ctx, "execution finished",
		"execution_id", state.ID,
		"status", status,
		"error", errMsg,
	)
}

// failureStatus distinguishes an exceeded deadline from an ordinary failure.
// Both the stage-level deadline (surfaced through err or the stage context)
// and the overall budget settle as TIMED_OUT; everything else is FAILED.
func (s *Service) failureStatus(ctx context.Context, err error) domain.ExecutionStatus {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.StatusTimedOut
	}
	return domain.StatusFailed
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.trail == nil {
		return
	}
	if err := s.trail.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit record failed",
			"action", event.Action,
			"execution_id", event.ExecutionID,
			"error", err,
		)
	}
}
