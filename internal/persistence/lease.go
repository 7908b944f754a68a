package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const tickLeaseKey = "ops-orchestrator:tick-lease"

// releaseScript deletes the lease only when it is still held by the caller,
// so a worker whose lease expired cannot delete a successor's lease.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`

// TickLease is a redis-backed guard against overlapping tick invocations.
// A slow tick keeps the lease until it finishes or the TTL expires.
type TickLease struct {
	client *redis.Client
	ttl    time.Duration
	token  string
}

// NewTickLease builds a lease with the given TTL.
func NewTickLease(r *Redis, ttl time.Duration) *TickLease {
	var client *redis.Client
	if r != nil {
		client = r.Client
	}
	return &TickLease{client: client, ttl: ttl}
}

// Acquire attempts to take the lease. It returns false when another
// invocation currently holds it.
func (l *TickLease) Acquire(ctx context.Context) (bool, error) {
	if l.client == nil {
		// No redis configured: run unguarded.
		return true, nil
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, tickLeaseKey, token, l.ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Release gives the lease back if this holder still owns it.
func (l *TickLease) Release(ctx context.Context) error {
	if l.client == nil || l.token == "" {
		return nil
	}
	defer func() { l.token = "" }()
	return l.client.Eval(ctx, releaseScript, []string{tickLeaseKey}, l.token).Err()
}
