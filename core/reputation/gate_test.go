package reputation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionguard/core/reputation"
	"github.com/dmitrymomot/sessionguard/core/traffic"
	"github.com/dmitrymomot/sessionguard/core/traffic/traffictest"
)

const blockDuration = 60 * time.Second

func TestGate_CheckAndGate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("unknown client is admitted", func(t *testing.T) {
		t.Parallel()
		gate := reputation.New(traffic.NewMemoryStore())

		assert.Equal(t, reputation.Admit, gate.CheckAndGate(ctx, "203.0.113.1", blockDuration))
	})

	t.Run("sighted client is admitted", func(t *testing.T) {
		t.Parallel()
		store := traffic.NewMemoryStore()
		gate := reputation.New(store)

		gate.RecordSighting(ctx, "203.0.113.1")
		gate.RecordSighting(ctx, "203.0.113.1")

		e, err := store.GetClient(ctx, "203.0.113.1")
		require.NoError(t, err)
		assert.False(t, e.Blacklisted)
		assert.Equal(t, reputation.Admit, gate.CheckAndGate(ctx, "203.0.113.1", blockDuration))
	})

	t.Run("blocked inside the window", func(t *testing.T) {
		t.Parallel()
		store := traffic.NewMemoryStore()
		clock := traffictest.NewClock(t0)
		gate := reputation.New(store, reputation.WithClock(clock.Now))

		require.NoError(t, store.SetBlacklisted(ctx, "c", t0))

		clock.Set(t0.Add(blockDuration - time.Millisecond))
		assert.Equal(t, reputation.Block, gate.CheckAndGate(ctx, "c", blockDuration))

		e, err := store.GetClient(ctx, "c")
		require.NoError(t, err)
		assert.True(t, e.Blacklisted, "blocking must not clear the flag")
	})

	t.Run("admitted and cleared after the window", func(t *testing.T) {
		t.Parallel()
		store := traffic.NewMemoryStore()
		clock := traffictest.NewClock(t0)
		gate := reputation.New(store, reputation.WithClock(clock.Now))

		require.NoError(t, store.SetBlacklisted(ctx, "c", t0))

		clock.Set(t0.Add(blockDuration + time.Millisecond))
		assert.Equal(t, reputation.Admit, gate.CheckAndGate(ctx, "c", blockDuration))

		e, err := store.GetClient(ctx, "c")
		require.NoError(t, err)
		assert.False(t, e.Blacklisted)

		assert.Equal(t, reputation.Admit, gate.CheckAndGate(ctx, "c", blockDuration))
	})

	t.Run("exactly at the window boundary admits", func(t *testing.T) {
		t.Parallel()
		store := traffic.NewMemoryStore()
		gate := reputation.New(store, reputation.WithClock(func() time.Time { return t0.Add(blockDuration) }))

		require.NoError(t, store.SetBlacklisted(ctx, "c", t0))
		assert.Equal(t, reputation.Admit, gate.CheckAndGate(ctx, "c", blockDuration))
	})

	t.Run("store unavailable fails open", func(t *testing.T) {
		t.Parallel()
		gate := reputation.New(traffictest.Unavailable{})

		assert.NotPanics(t, func() {
			gate.RecordSighting(ctx, "c")
			assert.Equal(t, reputation.Admit, gate.CheckAndGate(ctx, "c", blockDuration))
			assert.Equal(t, reputation.Admit, gate.CheckAndGate(ctx, "", blockDuration))
		})
	})
}

func TestGate_TrustDecisions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("blacklist then unblock", func(t *testing.T) {
		t.Parallel()
		store := traffic.NewMemoryStore()
		clock := traffictest.NewClock(t0)
		gate := reputation.New(store, reputation.WithClock(clock.Now))

		require.NoError(t, gate.Blacklist(ctx, "c"))

		clock.Advance(10 * time.Second)
		status, err := gate.Status(ctx, "c", blockDuration)
		require.NoError(t, err)
		assert.True(t, status.Entry.Blacklisted)
		assert.Equal(t, 50*time.Second, status.Remaining)
		assert.Equal(t, reputation.Block, gate.CheckAndGate(ctx, "c", blockDuration))

		require.NoError(t, gate.Unblock(ctx, "c"))
		assert.Equal(t, reputation.Admit, gate.CheckAndGate(ctx, "c", blockDuration))
		assert.ErrorIs(t, gate.Unblock(ctx, "c"), reputation.ErrNotBlacklisted)
	})

	t.Run("re-blacklisting restarts the window", func(t *testing.T) {
		t.Parallel()
		store := traffic.NewMemoryStore()
		clock := traffictest.NewClock(t0)
		gate := reputation.New(store, reputation.WithClock(clock.Now))

		require.NoError(t, gate.Blacklist(ctx, "c"))
		clock.Advance(50 * time.Second)
		require.NoError(t, gate.Blacklist(ctx, "c"))
		clock.Advance(20 * time.Second)

		assert.Equal(t, reputation.Block, gate.CheckAndGate(ctx, "c", blockDuration))
	})

	t.Run("unknown client", func(t *testing.T) {
		t.Parallel()
		gate := reputation.New(traffic.NewMemoryStore())

		assert.ErrorIs(t, gate.Unblock(ctx, "nobody"), reputation.ErrNotBlacklisted)
		_, err := gate.Status(ctx, "nobody", blockDuration)
		assert.ErrorIs(t, err, traffic.ErrNotFound)
	})

	t.Run("store unavailable", func(t *testing.T) {
		t.Parallel()
		gate := reputation.New(traffictest.Unavailable{})

		err := gate.Blacklist(ctx, "c")
		assert.ErrorIs(t, err, reputation.ErrTrustDecision)
		assert.ErrorIs(t, err, traffic.ErrStoreUnavailable)
	})
}

func TestDecisionString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "admit", reputation.Admit.String())
	assert.Equal(t, "block", reputation.Block.String())
}
