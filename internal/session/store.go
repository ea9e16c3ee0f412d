package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/property-service/internal/domain"
)

// Store persists one session per namespace key.
type Store interface {
	Load(ctx context.Context, key string) (*domain.Session, error)
	Save(ctx context.Context, key string, session *domain.Session, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Namespace builds the storage key for a role's session in one client runtime.
func Namespace(prefix string, role domain.Role, clientID string) string {
	return strings.Join([]string{prefix, string(role), clientID}, ":")
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]domain.Session
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string]domain.Session{}}
}

// Load returns nil when nothing is stored under key.
func (s *MemoryStore) Load(_ context.Context, key string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	return &stored, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, session *domain.Session, _ time.Duration) error {
	if session == nil {
		return errors.New("nil session")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = *session
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Keys lists stored keys.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	return keys
}

// RedisStore keeps sessions as JSON values in Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore returns a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Load(ctx context.Context, key string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stored domain.Session
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, session *domain.Session, ttl time.Duration) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, raw, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
