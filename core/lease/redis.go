package lease

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultWait         = 2 * time.Second
	DefaultTTL          = 10 * time.Second
	DefaultPollInterval = 25 * time.Millisecond
	DefaultKeyPrefix    = "sessionguard:lease:"
)

// releaseScript deletes the key only when it still holds our token, so an
// expired lease that was taken over by another holder is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker backed by SET NX PX leases, shared by every process that
// talks to the same Redis. A lease expires after its TTL even if the holder
// dies, which bounds how long a crashed holder can stall a client.
type Redis struct {
	client       redis.UniversalClient
	prefix       string
	ttl          time.Duration
	wait         time.Duration
	pollInterval time.Duration
}

// RedisOption configures a Redis locker.
type RedisOption func(*Redis)

// WithKeyPrefix sets the prefix of lease keys.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithTTL sets how long a lease lives without being released.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithWait sets the maximum time Acquire waits for a held key.
func WithWait(wait time.Duration) RedisOption {
	return func(r *Redis) {
		if wait > 0 {
			r.wait = wait
		}
	}
}

// WithPollInterval sets the delay between acquisition attempts.
func WithPollInterval(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

// NewRedis creates a Redis-backed locker.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	if client == nil {
		panic("lease: redis client is required")
	}

	r := &Redis{
		client:       client,
		prefix:       DefaultKeyPrefix,
		ttl:          DefaultTTL,
		wait:         DefaultWait,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ Expiring = (*Redis)(nil)

// TTL returns how long a lease lives without being released.
func (r *Redis) TTL() time.Duration {
	return r.ttl
}

func (r *Redis) Acquire(ctx context.Context, key string) (Release, error) {
	redisKey := r.prefix + key
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, r.wait)
	defer cancel()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, ErrLockTimeout
			}
			return nil, errors.Join(ErrLockUnavailable, err)
		}
		if ok {
			return r.release(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrLockTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Redis) release(redisKey, token string) Release {
	var (
		once sync.Once
		err  error
	)
	return func(ctx context.Context) error {
		once.Do(func() {
			n, e := releaseScript.Run(ctx, r.client, []string{redisKey}, token).Int()
			switch {
			case e != nil:
				err = fmt.Errorf("lease: release %s: %w", redisKey, e)
			case n == 0:
				err = ErrNotHeld
			}
		})
		return err
	}
}
