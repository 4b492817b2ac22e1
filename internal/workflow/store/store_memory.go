// Package store provides the persistence backends for workflow executions
// and applications: in-memory for tests and single-node runs, PostgreSQL and
// Redis for durable deployments. All backends enforce the same contract:
// creates are conflict-safe and a terminal snapshot is never overwritten.
package store

import (
	"context"
	"sync"

	"onboard/internal/domain"
	"onboard/pkg/platform/sentinel"
)

// InMemoryExecutionStore keeps execution snapshots in a mutex-guarded map.
// Snapshots are deep-copied on the way in and out so callers never share
// memory with the store.
type InMemoryExecutionStore struct {
	mu         sync.RWMutex
	executions map[string]*domain.ExecutionState
}

func NewInMemoryExecutionStore() *InMemoryExecutionStore {
	return &InMemoryExecutionStore{
		executions: make(map[string]*domain.ExecutionState),
	}
}

func (s *InMemoryExecutionStore) CreateExecution(ctx context.Context, state *domain.ExecutionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.executions[state.ID]; exists {
		return sentinel.ErrConflict
	}
	s.executions[state.ID] = state.Clone()
	return nil
}

func (s *InMemoryExecutionStore) SaveExecution(ctx context.Context, state *domain.ExecutionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, exists := s.executions[state.ID]
	if !exists {
		return sentinel.ErrNotFound
	}
	if current.Status.IsTerminal() {
		return sentinel.ErrInvalidState
	}
	s.executions[state.ID] = state.Clone()
	return nil
}

func (s *InMemoryExecutionStore) FindExecution(ctx context.Context, executionID string) (*domain.ExecutionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, exists := s.executions[executionID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return state.Clone(), nil
}

// InMemoryApplicationStore keeps application records in a mutex-guarded map.
type InMemoryApplicationStore struct {
	mu           sync.RWMutex
	applications map[string]domain.Application
}

func NewInMemoryApplicationStore() *InMemoryApplicationStore {
	return &InMemoryApplicationStore{
		applications: make(map[string]domain.Application),
	}
}

func (s *InMemoryApplicationStore) CreateApplication(ctx context.Context, app *domain.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.applications[app.ID]; exists {
		return sentinel.ErrConflict
	}
	s.applications[app.ID] = *app
	return nil
}

func (s *InMemoryApplicationStore) FindApplication(ctx context.Context, applicationID string) (*domain.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, exists := s.applications[applicationID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	cp := app
	return &cp, nil
}
