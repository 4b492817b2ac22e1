package workflow

import (
	"context"

	"onboard/internal/domain"
)

// ExecutionStore persists execution snapshots. Implementations must treat
// snapshots as values: a returned state is the caller's to keep, and a saved
// state must not alias store-internal memory.
type ExecutionStore interface {
	// CreateExecution persists the initial snapshot. It fails with
	// sentinel.ErrConflict when an execution with the same ID exists,
	// regardless of payload, so duplicate starts surface as conflicts.
	CreateExecution(ctx context.Context, state *domain.ExecutionState) error

	// SaveExecution replaces the stored snapshot for state.ID. It fails with
	// sentinel.ErrNotFound when the execution was never created, and with
	// sentinel.ErrInvalidState when the stored snapshot is already terminal.
	// The latter makes the terminal transition a compare-and-settle at the
	// persistence layer: whoever lands it first wins, everyone else stops.
	SaveExecution(ctx context.Context, state *domain.ExecutionState) error

	// FindExecution returns a point-in-time copy of the snapshot, or
	// sentinel.ErrNotFound.
	FindExecution(ctx context.Context, executionID string) (*domain.ExecutionState, error)
}

// ApplicationStore persists the immutable application records executions are
// started from.
type ApplicationStore interface {
	// CreateApplication persists a new application. It fails with
	// sentinel.ErrConflict when the ID is already taken.
	CreateApplication(ctx context.Context, app *domain.Application) error

	// FindApplication returns the application, or sentinel.ErrNotFound.
	FindApplication(ctx context.Context, applicationID string) (*domain.Application, error)
}
