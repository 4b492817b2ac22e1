package workflow

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"onboard/internal/audit"
	"onboard/internal/capability"
	"onboard/internal/capability/mocks"
	"onboard/internal/domain"
	"onboard/internal/verification"
	"onboard/internal/workflow/store"
	dErrors "onboard/pkg/domain-errors"
)

// stubVerifier returns a canned fan-out outcome, optionally blocking until
// its context is cancelled first.
type stubVerifier struct {
	outcome *verification.Outcome
	block   bool
}

func (v *stubVerifier) RunAll(ctx context.Context, executionID, customerID string, profile domain.Profile) *verification.Outcome {
	if v.block {
		<-ctx.Done()
	}
	return v.outcome
}

type recordingTrail struct {
	mu     sync.Mutex
	events []audit.Event
}

func (t *recordingTrail) Emit(ctx context.Context, event audit.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
	return nil
}

func (t *recordingTrail) actions() []audit.Action {
	t.mu.Lock()
	defer t.mu.Unlock()
	actions := make([]audit.Action, 0, len(t.events))
	for _, e := range t.events {
		actions = append(actions, e.Action)
	}
	return actions
}

func passingOutcome(credit, fraud int) *verification.Outcome {
	now := time.Now()
	return &verification.Outcome{
		Results: map[domain.CheckName]domain.VerificationResult{
			domain.CheckCreditScore: {
				Check: domain.CheckCreditScore, Provider: "FICO", Score: credit, CompletedAt: now,
			},
			domain.CheckFraudRisk: {
				Check: domain.CheckFraudRisk, Provider: "Kount", Score: fraud, CompletedAt: now,
			},
			domain.CheckCreditHistory: {
				Check: domain.CheckCreditHistory, Provider: "Experian",
				History: &domain.CreditHistoryReport{}, CompletedAt: now,
			},
		},
	}
}

func validStart() *StartRequest {
	return &StartRequest{
		CustomerID: "cust-1",
		Profile: domain.Profile{
			FirstName:   "Jan",
			LastName:    "Dough",
			Email:       "jan@example.com",
			DateOfBirth: "1990-04-12",
			Last4SSN:    "6789",
		},
	}
}

type serviceFixture struct {
	service    *Service
	executions *store.InMemoryExecutionStore
	trail      *recordingTrail
}

func newServiceFixture(t *testing.T, identity capability.IdentityVerifier, bank capability.BankLinker, verifier Verifier) *serviceFixture {
	t.Helper()
	executions := store.NewInMemoryExecutionStore()
	trail := &recordingTrail{}
	service := NewService(Deps{
		Executions:   executions,
		Applications: store.NewInMemoryApplicationStore(),
		Identity:     identity,
		BankLinker:   bank,
		Verifier:     verifier,
		Trail:        trail,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Timeouts: Timeouts{
			Identity:     time.Second,
			BankLink:     time.Second,
			Verification: time.Second,
			Decision:     time.Second,
		},
	})
	return &serviceFixture{service: service, executions: executions, trail: trail}
}

func happyCapabilities(ctrl *gomock.Controller) (*mocks.MockIdentityVerifier, *mocks.MockBankLinker) {
	identity := mocks.NewMockIdentityVerifier(ctrl)
	identity.EXPECT().VerifyIdentity(gomock.Any(), gomock.Any()).
		Return(capability.IdentityResult{Verified: true, ApplicantID: "apl-1"}, nil).AnyTimes()

	bank := mocks.NewMockBankLinker(ctrl)
	bank.EXPECT().CreateLinkToken(gomock.Any(), gomock.Any()).
		Return("link-sandbox-token", nil).AnyTimes()
	bank.EXPECT().LinkAccount(gomock.Any(), gomock.Any()).
		Return(capability.BankLinkResult{ItemID: "item-1"}, nil).AnyTimes()
	return identity, bank
}

// waitTerminal polls the store until the execution settles.
func waitTerminal(t *testing.T, executions *store.InMemoryExecutionStore, executionID string) *domain.ExecutionState {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("execution never reached a terminal status")
		case <-time.After(5 * time.Millisecond):
		}
		state, err := executions.FindExecution(context.Background(), executionID)
		require.NoError(t, err)
		if state.Status.IsTerminal() {
			return state
		}
	}
}

func TestStartApprovedEndToEnd(t *testing.T) {
	ctrl := gomock.NewController(t)
	identity, bank := happyCapabilities(ctrl)
	f := newServiceFixture(t, identity, bank, &stubVerifier{outcome: passingOutcome(720, 85)})

	result, err := f.service.Start(context.Background(), validStart())
	require.NoError(t, err)
	require.NotEmpty(t, result.ExecutionID)

	state := waitTerminal(t, f.executions, result.ExecutionID)

	assert.Equal(t, domain.StatusSucceeded, state.Status)
	assert.Equal(t, []domain.Stage{
		domain.StageCreated,
		domain.StageIdentityVerification,
		domain.StageBankLink,
		domain.StageParallelVerification,
		domain.StageDecision,
	}, state.CompletedStages)
	assert.Len(t, state.VerificationResults, 3)

	require.NotNil(t, state.Decision)
	assert.Equal(t, domain.DecisionApproved, state.Decision.Status)
	assert.Equal(t, []string{domain.ReasonAllChecksPassed}, state.Decision.Reasons)

	actions := f.trail.actions()
	assert.Contains(t, actions, audit.ActionExecutionStarted)
	assert.Contains(t, actions, audit.ActionDecisionMade)
	assert.Contains(t, actions, audit.ActionExecutionFinished)
}

func TestStartDeclinedStillSucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	identity, bank := happyCapabilities(ctrl)
	f := newServiceFixture(t, identity, bank, &stubVerifier{outcome: passingOutcome(580, 40)})

	result, err := f.service.Start(context.Background(), validStart())
	require.NoError(t, err)

	state := waitTerminal(t, f.executions, result.ExecutionID)

	assert.Equal(t, domain.StatusSucceeded, state.Status)
	require.NotNil(t, state.Decision)
	assert.Equal(t, domain.DecisionDeclined, state.Decision.Status)
	assert.Contains(t, state.Decision.Reasons, domain.ReasonCreditScoreBelowThreshold)
	assert.Contains(t, state.Decision.Reasons, domain.ReasonFraudRiskConcerns)
}

func TestStartIdentityRejectionFailsExecution(t *testing.T) {
	ctrl := gomock.NewController(t)
	identity := mocks.NewMockIdentityVerifier(ctrl)
	identity.EXPECT().VerifyIdentity(gomock.Any(), gomock.Any()).
		Return(capability.IdentityResult{Verified: false, Detail: "document mismatch"}, nil)
	_, bank := happyCapabilities(ctrl)

	f := newServiceFixture(t, identity, bank, &stubVerifier{outcome: passingOutcome(720, 85)})

	result, err := f.service.Start(context.Background(), validStart())
	require.NoError(t, err)

	state := waitTerminal(t, f.executions, result.ExecutionID)

	assert.Equal(t, domain.StatusFailed, state.Status)
	assert.Contains(t, state.Error, "document mismatch")
	assert.Nil(t, state.Decision)
	// The failed stage is recorded; nothing beyond it ever ran.
	assert.Equal(t, []domain.Stage{
		domain.StageCreated,
		domain.StageIdentityVerification,
	}, state.CompletedStages)
}

func TestAbortRunningExecution(t *testing.T) {
	ctrl := gomock.NewController(t)
	identity, bank := happyCapabilities(ctrl)
	blocking := &stubVerifier{outcome: passingOutcome(720, 85), block: true}
	f := newServiceFixture(t, identity, bank, blocking)

	result, err := f.service.Start(context.Background(), validStart())
	require.NoError(t, err)

	// Wait until the driver reaches the fan-out stage.
	require.Eventually(t, func() bool {
		state, err := f.executions.FindExecution(context.Background(), result.ExecutionID)
		return err == nil && state.CurrentStage == domain.StageParallelVerification
	}, 5*time.Second, 5*time.Millisecond)

	state, err := f.service.Abort(context.Background(), result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAborted, state.Status)

	// The driver wakes, loses the terminal write, and leaves ABORTED intact.
	final := waitTerminal(t, f.executions, result.ExecutionID)
	assert.Equal(t, domain.StatusAborted, final.Status)
	assert.Equal(t, "aborted by operator", final.Error)
}

func TestAbortUnknownAndFinished(t *testing.T) {
	ctrl := gomock.NewController(t)
	identity, bank := happyCapabilities(ctrl)
	f := newServiceFixture(t, identity, bank, &stubVerifier{outcome: passingOutcome(720, 85)})

	t.Run("unknown execution", func(t *testing.T) {
		_, err := f.service.Abort(context.Background(), "nope")
		assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
	})

	t.Run("finished execution", func(t *testing.T) {
		result, err := f.service.Start(context.Background(), validStart())
		require.NoError(t, err)
		waitTerminal(t, f.executions, result.ExecutionID)

		_, err = f.service.Abort(context.Background(), result.ExecutionID)
		assert.Equal(t, dErrors.CodeConflict, dErrors.CodeOf(err))
	})
}

func TestExecutionBudgetExhaustion(t *testing.T) {
	ctrl := gomock.NewController(t)
	identity, bank := happyCapabilities(ctrl)

	executions := store.NewInMemoryExecutionStore()
	service := NewService(Deps{
		Executions:   executions,
		Applications: store.NewInMemoryApplicationStore(),
		Identity:     identity,
		BankLinker:   bank,
		Verifier:     &stubVerifier{outcome: passingOutcome(720, 85), block: true},
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Timeouts: Timeouts{
			Identity:     20 * time.Millisecond,
			BankLink:     20 * time.Millisecond,
			Verification: 20 * time.Millisecond,
			Decision:     20 * time.Millisecond,
		},
	})

	result, err := service.Start(context.Background(), validStart())
	require.NoError(t, err)

	state := waitTerminal(t, executions, result.ExecutionID)
	assert.Equal(t, domain.StatusTimedOut, state.Status)
}

func TestStageTimeoutSettlesTimedOut(t *testing.T) {
	ctrl := gomock.NewController(t)

	// Identity honors cancellation but never answers within its stage bound.
	identity := mocks.NewMockIdentityVerifier(ctrl)
	identity.EXPECT().VerifyIdentity(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ domain.Profile) (capability.IdentityResult, error) {
			<-ctx.Done()
			return capability.IdentityResult{}, ctx.Err()
		})
	_, bank := happyCapabilities(ctrl)

	executions := store.NewInMemoryExecutionStore()
	service := NewService(Deps{
		Executions:   executions,
		Applications: store.NewInMemoryApplicationStore(),
		Identity:     identity,
		BankLinker:   bank,
		Verifier:     &stubVerifier{outcome: passingOutcome(720, 85)},
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		// The stage bound is tight while the overall budget stays generous,
		// so only the stage deadline can be what fires.
		Timeouts: Timeouts{
			Identity:     20 * time.Millisecond,
			BankLink:     5 * time.Second,
			Verification: 5 * time.Second,
			Decision:     5 * time.Second,
		},
	})

	result, err := service.Start(context.Background(), validStart())
	require.NoError(t, err)

	state := waitTerminal(t, executions, result.ExecutionID)
	assert.Equal(t, domain.StatusTimedOut, state.Status)
	assert.Contains(t, state.Error, "identity verification failed")
}

func TestStartInvalidRequestPersistsNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	identity, bank := happyCapabilities(ctrl)
	f := newServiceFixture(t, identity, bank, &stubVerifier{outcome: passingOutcome(720, 85)})

	_, err := f.service.Start(context.Background(), &StartRequest{})
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
	assert.Empty(t, f.trail.actions())
}

func TestStartRequestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*StartRequest)
		wantErr bool
	}{
		{"valid", func(r *StartRequest) {}, false},
		{"missing customer id", func(r *StartRequest) { r.CustomerID = " " }, true},
		{"missing name", func(r *StartRequest) { r.Profile.LastName = "" }, true},
		{"bad email", func(r *StartRequest) { r.Profile.Email = "not-an-email" }, true},
		{"short ssn digits", func(r *StartRequest) { r.Profile.Last4SSN = "67" }, true},
		{"non-numeric ssn digits", func(r *StartRequest) { r.Profile.Last4SSN = "67a9" }, true},
		{"bad date of birth", func(r *StartRequest) { r.Profile.DateOfBirth = "12/04/1990" }, true},
		{"empty optional email", func(r *StartRequest) { r.Profile.Email = "" }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validStart()
			tc.mutate(req)
			err := req.Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
