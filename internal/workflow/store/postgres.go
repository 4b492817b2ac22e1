package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"onboard/internal/domain"
	"onboard/pkg/platform/sentinel"
)

// PostgresExecutionStore persists execution snapshots as JSONB documents with
// the status lifted into its own column. The UPDATE guards on the stored
// status being non-terminal, so the single-terminal-transition invariant is
// enforced by the database rather than by callers behaving.
type PostgresExecutionStore struct {
	db *sql.DB
}

func NewPostgresExecutionStore(db *sql.DB) *PostgresExecutionStore {
	return &PostgresExecutionStore{db: db}
}

// ExecutionsSchema creates the executions table. Applied at startup; the
// statement is idempotent.
const ExecutionsSchema = `
CREATE TABLE IF NOT EXISTS executions (
	id          TEXT PRIMARY KEY,
	customer_id TEXT NOT NULL,
	status      TEXT NOT NULL,
	snapshot    JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS executions_customer_idx ON executions (customer_id);
`

func (s *PostgresExecutionStore) CreateExecution(ctx context.Context, state *domain.ExecutionState) error {
	snapshot, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal execution snapshot: %w", err)
	}
	query := `
		INSERT INTO executions (id, customer_id, status, snapshot, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(ctx, query,
		state.ID, state.CustomerID, string(state.Status), snapshot, state.CreatedAt, state.LastUpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create execution: %w", err)
	}
	return nil
}

func (s *PostgresExecutionStore) SaveExecution(ctx context.Context, state *domain.ExecutionState) error {
	snapshot, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal execution snapshot: %w", err)
	}
	query := `
		UPDATE executions
		SET status = $2, snapshot = $3, updated_at = $4
		WHERE id = $1 AND status = $5
	`
	res, err := s.db.ExecContext(ctx, query,
		state.ID, string(state.Status), snapshot, state.LastUpdatedAt, string(domain.StatusRunning))
	if err != nil {
		return fmt.Errorf("save execution: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save execution: %w", err)
	}
	if affected == 0 {
		// Either the row is missing or it already settled.
		var stored string
		err := s.db.QueryRowContext(ctx, `SELECT status FROM executions WHERE id = $1`, state.ID).Scan(&stored)
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("save execution: %w", err)
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresExecutionStore) FindExecution(ctx context.Context, executionID string) (*domain.ExecutionState, error) {
	var snapshot []byte
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM executions WHERE id = $1`, executionID).Scan(&snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find execution: %w", err)
	}
	var state domain.ExecutionState
	if err := json.Unmarshal(snapshot, &state); err != nil {
		return nil, fmt.Errorf("unmarshal execution snapshot: %w", err)
	}
	return &state, nil
}

// PostgresApplicationStore persists application records.
type PostgresApplicationStore struct {
	db *sql.DB
}

func NewPostgresApplicationStore(db *sql.DB) *PostgresApplicationStore {
	return &PostgresApplicationStore{db: db}
}

// ApplicationsSchema creates the applications table.
const ApplicationsSchema = `
CREATE TABLE IF NOT EXISTS applications (
	id          TEXT PRIMARY KEY,
	customer_id TEXT NOT NULL,
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
`

func (s *PostgresApplicationStore) CreateApplication(ctx context.Context, app *domain.Application) error {
	payload, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("marshal application: %w", err)
	}
	query := `
		INSERT INTO applications (id, customer_id, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err = s.db.ExecContext(ctx, query, app.ID, app.CustomerID, payload, app.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

func (s *PostgresApplicationStore) FindApplication(ctx context.Context, applicationID string) (*domain.Application, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM applications WHERE id = $1`, applicationID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find application: %w", err)
	}
	var app domain.Application
	if err := json.Unmarshal(payload, &app); err != nil {
		return nil, fmt.Errorf("unmarshal application: %w", err)
	}
	return &app, nil
}
