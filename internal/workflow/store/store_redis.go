package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"onboard/internal/domain"
	"onboard/pkg/platform/sentinel"
)

const executionKeyPrefix = "onboard:execution:"

// RedisExecutionStore keeps execution snapshots in Redis for deployments
// where multiple instances serve status reads. Creation uses SETNX so
// duplicate starts collide; saves run under WATCH so a settled execution is
// never overwritten.
type RedisExecutionStore struct {
	client    *redis.Client
	retention time.Duration
}

// RedisExecutionStoreOption configures a RedisExecutionStore.
type RedisExecutionStoreOption func(*RedisExecutionStore)

// WithRetention bounds how long finished snapshots remain readable.
func WithRetention(d time.Duration) RedisExecutionStoreOption {
	return func(s *RedisExecutionStore) {
		if d > 0 {
			s.retention = d
		}
	}
}

func NewRedisExecutionStore(client *redis.Client, opts ...RedisExecutionStoreOption) *RedisExecutionStore {
	s := &RedisExecutionStore{
		client:    client,
		retention: 24 * time.Hour,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisExecutionStore) CreateExecution(ctx context.Context, state *domain.ExecutionState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal execution snapshot: %w", err)
	}
	ok, err := s.client.SetNX(ctx, executionKeyPrefix+state.ID, payload, s.retention).Result()
	if err != nil {
		return fmt.Errorf("create execution: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisExecutionStore) SaveExecution(ctx context.Context, state *domain.ExecutionState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal execution snapshot: %w", err)
	}
	key := executionKeyPrefix + state.ID

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}
		var current domain.ExecutionState
		if err := json.Unmarshal(stored, &current); err != nil {
			return fmt.Errorf("unmarshal stored snapshot: %w", err)
		}
		if current.Status.IsTerminal() {
			return sentinel.ErrInvalidState
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, redis.KeepTTL)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrInvalidState):
		return err
	case errors.Is(err, redis.TxFailedErr):
		// The key changed under us; the competing write wins.
		return sentinel.ErrInvalidState
	default:
		return fmt.Errorf("save execution: %w", err)
	}
}

func (s *RedisExecutionStore) FindExecution(ctx context.Context, executionID string) (*domain.ExecutionState, error) {
	payload, err := s.client.Get(ctx, executionKeyPrefix+executionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find execution: %w", err)
	}
	var state domain.ExecutionState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("unmarshal execution snapshot: %w", err)
	}
	return &state, nil
}
