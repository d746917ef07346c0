package lease

import (
	"context"
	"sync"
	"time"
)

// Keyed is an in-process Locker. Each key gets its own one-slot semaphore that
// exists only while someone holds or waits for it. The map guard is held only
// to look up or drop a slot, never while waiting.
//
// Keyed serializes goroutines of one process. Deployments with several
// processes sharing a store must use Redis.
type Keyed struct {
	mu    sync.Mutex
	slots map[string]*slot
	wait  time.Duration
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewKeyed creates an in-process locker with the given maximum wait per Acquire.
func NewKeyed(wait time.Duration) *Keyed {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Keyed{
		slots: make(map[string]*slot),
		wait:  wait,
	}
}

func (k *Keyed) Acquire(ctx context.Context, key string) (Release, error) {
	s := k.ref(key)

	timer := time.NewTimer(k.wait)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
	case <-timer.C:
		k.unref(key, s)
		return nil, ErrLockTimeout
	case <-ctx.Done():
		k.unref(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-s.ch
			k.unref(key, s)
		})
		return nil
	}, nil
}

// Len returns the number of keys currently held or waited on.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}

func (k *Keyed) ref(key string) *slot {
	k.mu.Lock()
	defer k.mu.Unlock()

	s, ok := k.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.refs++
	return s
}

func (k *Keyed) unref(key string, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
}
