package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Deletes the key only while it still holds our token.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Leaser takes short exclusive leases with SET NX PX. A lease expires on
// its own, so a crashed holder blocks others for at most its TTL.
type Leaser struct {
	client redis.UniversalClient
	script *redis.Script
	prefix string
}

// NewLeaser panics on a nil client. Keys are namespaced with prefix.
func NewLeaser(client redis.UniversalClient, prefix string) *Leaser {
	if client == nil {
		panic("redis: client cannot be nil")
	}
	return &Leaser{
		client: client,
		script: redis.NewScript(releaseScript),
		prefix: prefix,
	}
}

// Lease is a held lease. Release is safe to call after expiry.
type Lease struct {
	leaser *Leaser
	key    string
	token  string
}

// Acquire tries to take key for ttl. ok is false when someone else holds it.
func (l *Leaser) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, bool, error) {
	if key == "" || ttl <= 0 {
		return nil, false, ErrInvalidLease
	}

	full := l.prefix + key
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, errors.Join(ErrLeaseFailed, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Lease{leaser: l, key: full, token: token}, true, nil
}

// Release gives the lease back if still held.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.leaser.script.Run(ctx, l.leaser.client, []string{l.key}, l.token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return errors.Join(ErrLeaseFailed, err)
	}
	return nil
}

// Key returns the namespaced lease key.
func (l *Lease) Key() string { return l.key }
