package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ticketdesk/ticketdesk/internal/core/ports"
)

// TokenStore keeps a denylist of revoked access tokens. Entries expire with
// the token itself, so the list never grows past one TTL window.
type TokenStore struct {
	client *redis.Client
}

var _ ports.TokenRevoker = (*TokenStore)(nil)

func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// Ping verifies the Redis connection is alive. Used by health checks.
func (s *TokenStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// tokenKey hashes the raw token so the denylist never stores usable
// credentials.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "revoked:" + hex.EncodeToString(sum[:])
}

// Revoke marks a token as unusable for the remainder of its lifetime.
func (s *TokenStore) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token already expired; nothing to deny.
		return nil
	}
	return s.client.Set(ctx, tokenKey(token), "1", ttl).Err()
}

// IsRevoked reports whether a token has been revoked.
func (s *TokenStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	err := s.client.Get(ctx, tokenKey(token)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
