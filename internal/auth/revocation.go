package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations is the set of revoked refresh token ids. Entries only need to
// live until the token itself would expire.
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, revokedAt, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// InMemoryRevocations is a process-local set for dev and single-process
// deployments.
type InMemoryRevocations struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewInMemoryRevocations creates an empty set.
func NewInMemoryRevocations() *InMemoryRevocations {
	return &InMemoryRevocations{entries: make(map[string]time.Time), now: time.Now}
}

// Revoke records tokenID until the given time.
func (m *InMemoryRevocations) Revoke(_ context.Context, tokenID string, _, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, exp := range m.entries {
		if !exp.After(now) {
			delete(m.entries, id)
		}
	}
	if cur, ok := m.entries[tokenID]; !ok || until.After(cur) {
		m.entries[tokenID] = until
	}
	return nil
}

// IsRevoked reports whether tokenID is in the set.
func (m *InMemoryRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.entries[tokenID]
	return ok && exp.After(m.now()), nil
}

// RedisRevocations shares the set across server processes. Keys hold the
// revocation time and expire with the token.
type RedisRevocations struct {
	client *redis.Client
	prefix string
}

// NewRedisRevocations builds a redis-backed set under prefix.
func NewRedisRevocations(client *redis.Client, prefix string) *RedisRevocations {
	if prefix == "" {
		prefix = "hrm:revoked:"
	}
	return &RedisRevocations{client: client, prefix: prefix}
}

// Revoke stores tokenID with a TTL matching the token's remaining life.
func (r *RedisRevocations) Revoke(ctx context.Context, tokenID string, revokedAt, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.prefix+tokenID, revokedAt.UTC().Format(time.RFC3339), ttl).Err()
}

// IsRevoked reports whether tokenID is present.
func (r *RedisRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
