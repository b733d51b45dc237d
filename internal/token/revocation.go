package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// --- REDIS-BASED REVOCATION REGISTRY ---

const revokedKeyPrefix = "revoked:"

// RedisRevocationRegistry stores one key per revoked token id, expiring when the token
// could no longer be used anyway.
type RedisRevocationRegistry struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisRevocationRegistry(client *redis.Client) *RedisRevocationRegistry {
	return &RedisRevocationRegistry{client: client, now: time.Now}
}

func (r *RedisRevocationRegistry) Revoke(ctx context.Context, tokenID string, until time.Time) (bool, error) {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		// Already unusable; nothing to remember.
		return true, nil
	}

	set, err := r.client.SetNX(ctx, revokedKeyPrefix+tokenID, until.Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis revoke: %w", err)
	}
	return set, nil
}

func (r *RedisRevocationRegistry) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis revocation lookup: %w", err)
	}
	return n > 0, nil
}

// --- FALLBACK IN-MEMORY REVOCATION REGISTRY ---

type MemoryRevocationRegistry struct {
	revoked map[string]time.Time
	mu      sync.RWMutex
	now     func() time.Time
}

func NewMemoryRevocationRegistry() *MemoryRevocationRegistry {
	return &MemoryRevocationRegistry{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (r *MemoryRevocationRegistry) Revoke(_ context.Context, tokenID string, until time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.revoked[tokenID]; ok && r.now().Before(existing) {
		return false, nil
	}
	if !r.now().Before(until) {
		return true, nil
	}
	r.revoked[tokenID] = until
	return true, nil
}

func (r *MemoryRevocationRegistry) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	until, ok := r.revoked[tokenID]
	return ok && r.now().Before(until), nil
}

// Cleanup drops entries whose tokens can no longer be used and returns how many were removed.
func (r *MemoryRevocationRegistry) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	now := r.now()
	for id, until := range r.revoked {
		if !now.Before(until) {
			delete(r.revoked, id)
			removed++
		}
	}
	return removed
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (r *MemoryRevocationRegistry) StartCleanup(ctx context.Context, interval time.Duration, logger zerolog.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.Cleanup(); n > 0 {
					logger.Debug().Int("removed", n).Msg("Expired token revocations pruned")
				}
			}
		}
	}()
}
