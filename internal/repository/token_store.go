package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenKind namespaces opaque tokens held in Redis.
type TokenKind string

const (
	TokenRefresh      TokenKind = "refresh"
	TokenRecovery     TokenKind = "recovery"
	TokenConfirmation TokenKind = "confirmation"
)

// ErrTokenNotFound is returned when a token is unknown, expired or already used.
var ErrTokenNotFound = errors.New("token not found")

// TokenStore keeps opaque single-use tokens mapped to identity ids.
type TokenStore interface {
	Put(ctx context.Context, kind TokenKind, token, identityID string, ttl time.Duration) error
	Consume(ctx context.Context, kind TokenKind, token string) (string, error)
	Delete(ctx context.Context, kind TokenKind, token string) error
}

type redisTokenStore struct {
	client *redis.Client
}

// NewRedisTokenStore returns a Redis-backed TokenStore.
func NewRedisTokenStore(client *redis.Client) TokenStore {
	return &redisTokenStore{client: client}
}

func tokenKey(kind TokenKind, token string) string {
	return "token:" + string(kind) + ":" + token
}

func (s *redisTokenStore) Put(ctx context.Context, kind TokenKind, token, identityID string, ttl time.Duration) error {
	return s.client.Set(ctx, tokenKey(kind, token), identityID, ttl).Err()
}

// Consume reads and deletes the token atomically so it can be used once.
func (s *redisTokenStore) Consume(ctx context.Context, kind TokenKind, token string) (string, error) {
	identityID, err := s.client.GetDel(ctx, tokenKey(kind, token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", err
	}
	return identityID, nil
}

func (s *redisTokenStore) Delete(ctx context.Context, kind TokenKind, token string) error {
	return s.client.Del(ctx, tokenKey(kind, token)).Err()
}
