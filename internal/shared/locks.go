package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("lock already held")

// RequisitionLockKey builds the redis key guarding transitions of one requisition.
func RequisitionLockKey(pk string) string {
	return fmt.Sprintf("requisition:%s:transition", pk)
}

// LockManager hands out short-lived exclusive locks backed by Redis.
type LockManager struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLockManager constructs a LockManager. ttl bounds how long a crashed holder
// can keep a key.
func NewLockManager(client *redis.Client, ttl time.Duration) *LockManager {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &LockManager{client: client, ttl: ttl}
}

var releaseScript = redis.NewScript(`if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Acquire takes key or returns ErrLockHeld. The returned func releases the
// lock only if it is still owned by this caller.
func (m *LockManager) Acquire(ctx context.Context, key string) (func(context.Context), error) {
	token := uuid.NewString()
	ok, err := m.client.SetNX(ctx, key, token, m.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func(ctx context.Context) {
		_ = releaseScript.Run(ctx, m.client, []string{key}, token).Err()
	}, nil
}
