package sweep

import (
	"context"
	"time"

	"github.com/beautydesk/backoffice/pkg/redis"
)

// Lease is a held run lease.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker hands out run leases. ok is false when another run holds the key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (lease Lease, ok bool, err error)
}

// RedisLocker adapts a redis leaser.
func RedisLocker(l *redis.Leaser) Locker {
	return redisLocker{l: l}
}

type redisLocker struct {
	l *redis.Leaser
}

func (r redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	lease, ok, err := r.l.Acquire(ctx, key, ttl)
	if err != nil || !ok {
		return nil, ok, err
	}
	return lease, true, nil
}
