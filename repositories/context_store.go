package repositories

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ContextStore is the per-session key-value store the orchestrator keeps
// its cross-request state in. Any backend with last-writer-wins semantics
// and atomic single-key writes satisfies the contract.
type ContextStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// RedisContextStore backs the context store with Redis. Keys carry a TTL so
// abandoned sessions age out.
type RedisContextStore struct {
	redis RedisClient
	ttl   time.Duration
}

func NewRedisContextStore(client RedisClient, ttl time.Duration) *RedisContextStore {
	return &RedisContextStore{redis: client, ttl: ttl}
}

func (s *RedisContextStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.redis.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisContextStore) Set(ctx context.Context, key, value string) error {
	return s.redis.Set(ctx, key, value, s.ttl)
}

func (s *RedisContextStore) Delete(ctx context.Context, key string) error {
	return s.redis.Del(ctx, key)
}

// MemoryContextStore is an in-process implementation for tests and
// single-node deployments.
type MemoryContextStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryContextStore() *MemoryContextStore {
	return &MemoryContextStore{values: make(map[string]string)}
}

func (s *MemoryContextStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok, nil
}

func (s *MemoryContextStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryContextStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
