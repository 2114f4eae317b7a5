package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CredentialStore is the seam between session logic and wherever the bearer
// credential actually lives. One slot per browser session; the credential is
// read fresh on every access because login, logout and the auto-logout timer
// may all rewrite it between reads.
//
// Get returns an empty string for a missing slot; callers treat that as an
// absent session rather than an error.
type CredentialStore interface {
	Get(ctx context.Context, sessionID string) (string, error)
	Set(ctx context.Context, sessionID, credential string, ttl time.Duration) error
	Clear(ctx context.Context, sessionID string) error
}

// RedisCredentialStore keeps credential slots in redis, keyed by session ID.
type RedisCredentialStore struct {
	client *redis.Client
}

// NewRedisCredentialStore constructs a RedisCredentialStore.
func NewRedisCredentialStore(client *redis.Client) *RedisCredentialStore {
	return &RedisCredentialStore{client: client}
}

// Get reads the credential slot. A missing slot is not an error.
func (s *RedisCredentialStore) Get(ctx context.Context, sessionID string) (string, error) {
	value, err := s.client.Get(ctx, credentialKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// Set writes the credential slot. The ttl caps how long redis keeps the slot
// alive on its own; it should match the credential's remaining lifetime.
func (s *RedisCredentialStore) Set(ctx context.Context, sessionID, credential string, ttl time.Duration) error {
	return s.client.Set(ctx, credentialKey(sessionID), credential, ttl).Err()
}

// Clear destroys the credential slot. Clearing an empty slot is a no-op.
func (s *RedisCredentialStore) Clear(ctx context.Context, sessionID string) error {
	err := s.client.Del(ctx, credentialKey(sessionID)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func credentialKey(sessionID string) string {
	return "credential:" + sessionID
}
