package lease

import (
	"context"
	"errors"
	"time"
)

var (
	ErrLockTimeout     = errors.New("lease: timed out waiting for lock")
	ErrLockUnavailable = errors.New("lease: lock backend unavailable")
	ErrNotHeld         = errors.New("lease: lock not held")
)

// Release gives a lease back. It is safe to call more than once.
type Release func(ctx context.Context) error

// Locker serializes work per key. Acquire waits a bounded time for the key and
// returns ErrLockTimeout when the wait elapses. Locks on different keys never
// contend with each other.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// Expiring is implemented by lockers whose leases lapse on their own after
// TTL. Work done under such a lease must finish before it lapses.
type Expiring interface {
	TTL() time.Duration
}
