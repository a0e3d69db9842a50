package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// presenceOpTimeout bounds every presence operation. A store that does not
// answer within this window is treated the same as an unreachable one.
const presenceOpTimeout = 5 * time.Second

// decrAndCleanup decrements the counter and removes the key once it drops to
// zero or below, in a single atomic step on the server.
var decrAndCleanup = redis.NewScript(`
local v = redis.call('DECR', KEYS[1])
if v <= 0 then
	redis.call('DEL', KEYS[1])
end
return v
`)

// RedisPresence implements Presence on a shared Redis instance, so the per-user
// connection cap holds across all server processes.
type RedisPresence struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPresence constructs a RedisPresence. ttl is the self-expiry applied
// to each counter entry on every increment.
func NewRedisPresence(client *redis.Client, ttl time.Duration) *RedisPresence {
	return &RedisPresence{client: client, ttl: ttl}
}

func presenceKey(userID uuid.UUID) string {
	return "presence:user:" + userID.String()
}

// Current reads the counter. Absent keys read as 0; any transport failure or
// timeout maps to ErrPresenceUnavailable.
func (p *RedisPresence) Current(ctx context.Context, userID uuid.UUID) (int64, error) {
	opCtx, cancel := context.WithTimeout(ctx, presenceOpTimeout)
	defer cancel()

	count, err := p.client.Get(opCtx, presenceKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPresenceUnavailable, err)
	}
	return count, nil
}

// Increment bumps the counter and re-arms its TTL in one pipeline round trip.
func (p *RedisPresence) Increment(ctx context.Context, userID uuid.UUID) (int64, error) {
	opCtx, cancel := context.WithTimeout(ctx, presenceOpTimeout)
	defer cancel()

	key := presenceKey(userID)

	pipe := p.client.TxPipeline()
	incr := pipe.Incr(opCtx, key)
	pipe.Expire(opCtx, key, p.ttl)

	if _, err := pipe.Exec(opCtx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPresenceUnavailable, err)
	}
	return incr.Val(), nil
}

// Decrement runs the decrement-and-cleanup script.
func (p *RedisPresence) Decrement(ctx context.Context, userID uuid.UUID) error {
	opCtx, cancel := context.WithTimeout(ctx, presenceOpTimeout)
	defer cancel()

	if err := decrAndCleanup.Run(opCtx, p.client, []string{presenceKey(userID)}).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrPresenceUnavailable, err)
	}
	return nil
}
