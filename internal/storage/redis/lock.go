package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Default lock timings.
const (
	DefaultLockTTL   = 10 * time.Second
	DefaultRetryWait = 25 * time.Millisecond
)

// releaseScript deletes the lock only if it still holds our token, so a holder
// whose TTL expired cannot release a lock taken over by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a per-group mutual exclusion lock shared by every process using
// the same Redis.
type Locker struct {
	client    redis.UniversalClient
	ttl       time.Duration
	retryWait time.Duration
}

// NewLocker creates a Locker. Zero durations select the defaults.
func NewLocker(client redis.UniversalClient, ttl, retryWait time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if retryWait <= 0 {
		retryWait = DefaultRetryWait
	}
	return &Locker{client: client, ttl: ttl, retryWait: retryWait}
}

// Lock blocks until the lock for groupID is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, groupID string) (func(), error) {
	key := lockKeyPrefix + groupID
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire group lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to acquire group lock: %w", ctx.Err())
		case <-time.After(l.retryWait):
		}
	}

	return func() {
		// Release even if the caller's ctx is already cancelled.
		rctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.client, []string{key}, token).Err(); err != nil {
			slog.Warn("Failed to release group lock", "group_id", groupID, "error", err)
		}
	}, nil
}
