package verification

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"onboard/internal/audit"
	"onboard/internal/domain"
	"onboard/internal/workflow/metrics"
)

// Trail records check invocations for the audit trail. Recording is
// write-only from the coordinator's perspective.
type Trail interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Outcome is the aggregate of one fan-out run. Results always holds exactly
// one entry per check; degraded checks carry sentinel results and appear in
// Failures.
type Outcome struct {
	Results  map[domain.CheckName]domain.VerificationResult
	Failures []domain.CheckError
}

// Ordered returns the results in canonical check order for serialization.
// Absent checks are skipped, so a partially populated result set (an
// execution still mid-flight) serializes without placeholder entries.
func (o *Outcome) Ordered() []domain.VerificationResult {
	ordered := make([]domain.VerificationResult, 0, len(o.Results))
	for _, name := range domain.CheckOrder {
		if result, ok := o.Results[name]; ok {
			ordered = append(ordered, result)
		}
	}
	return ordered
}

// Coordinator fans the verification checks out concurrently and collects
// their results. It never proceeds partially and never blocks indefinitely:
// every check settles within the per-check timeout, by result, error, or
// abandonment.
type Coordinator struct {
	checks  []Check
	timeout time.Duration
	trail   Trail
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// NewCoordinator builds a coordinator over the given checks. perCheckTimeout
// bounds each check independently; because the checks run in parallel it
// also bounds the whole fan-out (plus scheduling overhead).
func NewCoordinator(checks []Check, perCheckTimeout time.Duration, trail Trail, logger *slog.Logger, m *metrics.Metrics) *Coordinator {
	return &Coordinator{
		checks:  checks,
		timeout: perCheckTimeout,
		trail:   trail,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("onboard/verification"),
	}
}

// RunAll launches every check concurrently and waits for all of them to
// settle. No check is started based on another's outcome, and cancellation
// of one does not affect the others. The returned outcome always contains
// exactly one result per check.
func (c *Coordinator) RunAll(ctx context.Context, executionID, customerID string, profile domain.Profile) *Outcome {
	ctx, span := c.tracer.Start(ctx, "verification.fan_out",
		trace.WithAttributes(attribute.Int("checks", len(c.checks))))
	defer span.End()

	outcome := &Outcome{
		Results: make(map[domain.CheckName]domain.VerificationResult, len(c.checks)),
	}

	var mu sync.Mutex
	g := new(errgroup.Group)

	for _, check := range c.checks {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			start := time.Now()
			result, err := c.runOne(checkCtx, check, customerID, profile)
			elapsed := time.Since(start)

			c.metrics.ObserveCheckLatency(string(check.Name()), elapsed)

			mu.Lock()
			if err != nil {
				result = domain.SentinelResult(check.Name(), check.Provider(), time.Now())
				outcome.Failures = append(outcome.Failures, domain.CheckError{
					Check:    check.Name(),
					Provider: check.Provider(),
					Message:  err.Error(),
					TimedOut: errors.Is(err, context.DeadlineExceeded),
				})
				c.metrics.IncCheckFailure(string(check.Name()))
			}
			outcome.Results[check.Name()] = result
			mu.Unlock()

			c.record(ctx, executionID, customerID, check, result, err)
			return nil
		})
	}

	// All goroutines return nil; Wait only synchronizes.
	_ = g.Wait()

	return outcome
}

// runOne invokes a single check, bounded by checkCtx. A check that ignores
// cancellation is abandoned at the deadline so the fan-out always settles.
func (c *Coordinator) runOne(ctx context.Context, check Check, customerID string, profile domain.Profile) (domain.VerificationResult, error) {
	type settled struct {
		result domain.VerificationResult
		err    error
	}
	done := make(chan settled, 1)

	go func() {
		result, err := check.Run(ctx, customerID, profile)
		done <- settled{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return domain.VerificationResult{}, ctx.Err()
	case s := <-done:
		return s.result, s.err
	}
}

func (c *Coordinator) record(ctx context.Context, executionID, customerID string, check Check, result domain.VerificationResult, runErr error) {
	if c.trail == nil {
		return
	}
	event := audit.Event{
		CustomerID:  customerID,
		ExecutionID: executionID,
		CheckType:   string(check.Name()),
		Provider:    check.Provider(),
		Action:      audit.ActionCheckCompleted,
		Outcome:     "score=" + strconv.Itoa(result.Score),
	}
	if runErr != nil {
		event.Action = audit.ActionCheckFailed
		event.Outcome = "sentinel"
		event.Detail = runErr.Error()
	}
	if err := c.trail.Emit(ctx, event); err != nil && c.logger != nil {
		c.logger.ErrorContext(ctx, "check audit record failed",
			"check", check.Name(),
			"customer_id", customerID,
			"error", err,
		)
	}
}
