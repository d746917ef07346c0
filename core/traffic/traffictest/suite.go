package traffictest

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionguard/core/traffic"
)

// RunStoreSuite checks the behaviour every traffic.Store must share.
// Client ids are random, so the suite can run against a shared database.
func RunStoreSuite(t *testing.T, store traffic.Store) {
	t.Helper()

	ctx := context.Background()
	// Millisecond precision survives every backend.
	base := time.Now().UTC().Truncate(time.Millisecond)
	client := func() string { return "client-" + uuid.NewString() }

	insert := func(t *testing.T, clientID string, offset time.Duration) string {
		t.Helper()
		id, err := store.InsertRecord(ctx, &traffic.Record{
			ClientID:    clientID,
			Timestamp:   base.Add(offset),
			Method:      "GET",
			URL:         "/",
			FullURL:     "http://example.com/",
			StatusCode:  200,
			ContentType: "text/html",
			RequestLine: "GET /",
			Headers:     http.Header{"Accept": {"text/html", "*/*"}, "User-Agent": {"suite"}},
			Session:     traffic.Unassigned(),
		})
		require.NoError(t, err)
		require.NotEmpty(t, id)
		return id
	}

	t.Run("ensure client is idempotent", func(t *testing.T) {
		id := client()
		require.NoError(t, store.EnsureClient(ctx, id))
		require.NoError(t, store.EnsureClient(ctx, id))

		e, err := store.GetClient(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, e.ClientID)
		assert.False(t, e.Blacklisted)
	})

	t.Run("missing client", func(t *testing.T) {
		_, err := store.GetClient(ctx, client())
		assert.ErrorIs(t, err, traffic.ErrNotFound)
	})

	t.Run("blacklist creates and clears conditionally", func(t *testing.T) {
		id := client()
		require.NoError(t, store.SetBlacklisted(ctx, id, base))

		e, err := store.GetClient(ctx, id)
		require.NoError(t, err)
		assert.True(t, e.Blacklisted)
		assert.True(t, base.Equal(e.BlacklistedAt))

		ok, err := store.ClearBlacklist(ctx, id, base.Add(-time.Second))
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = store.ClearBlacklist(ctx, id, base)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.ClearBlacklist(ctx, id, base)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("records round trip unassigned", func(t *testing.T) {
		c := client()
		id := insert(t, c, 0)

		rec, err := store.GetRecord(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, rec.ID)
		assert.Equal(t, c, rec.ClientID)
		assert.Equal(t, "GET", rec.Method)
		assert.Equal(t, 200, rec.StatusCode)
		assert.True(t, base.Equal(rec.Timestamp))
		assert.Equal(t, "GET /", rec.RequestLine)
		assert.Equal(t, http.Header{"Accept": {"text/html", "*/*"}, "User-Agent": {"suite"}}, rec.Headers)
		assert.False(t, rec.Session.IsAssigned())

		_, err = store.GetRecord(ctx, "missing")
		assert.ErrorIs(t, err, traffic.ErrNotFound)
	})

	t.Run("recent records are ordered and windowed", func(t *testing.T) {
		c := client()
		late := insert(t, c, 30*time.Second)
		insert(t, c, -time.Hour)
		early := insert(t, c, 10*time.Second)
		insert(t, client(), 20*time.Second)

		recs, err := store.RecentRecords(ctx, c, base)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, early, recs[0].ID)
		assert.Equal(t, late, recs[1].ID)
	})

	t.Run("assignment happens once", func(t *testing.T) {
		c := client()
		id := insert(t, c, 0)
		joined := insert(t, c, time.Second)

		ok, err := store.AssignSession(ctx, id, id)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.AssignSession(ctx, id, "other")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = store.AssignSession(ctx, joined, id)
		require.NoError(t, err)
		assert.True(t, ok)

		rec, err := store.GetRecord(ctx, id)
		require.NoError(t, err)
		assert.True(t, rec.OpensSession())

		n, err := store.CountSession(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("concurrent assignment has one winner", func(t *testing.T) {
		id := insert(t, client(), 0)

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := store.AssignSession(ctx, id, uuid.NewString())
				assert.NoError(t, err)
				if ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
	})

	t.Run("previous record follows stream order", func(t *testing.T) {
		c := client()
		first := insert(t, c, 0)
		lo := insert(t, c, 5*time.Second)
		hi := insert(t, c, 5*time.Second)
		if hi < lo {
			lo, hi = hi, lo
		}
		insert(t, c, 9*time.Second)

		prev, err := store.PreviousRecord(ctx, c, base.Add(5*time.Second), hi)
		require.NoError(t, err)
		assert.Equal(t, lo, prev.ID, "same timestamp with a smaller id comes first")

		prev, err = store.PreviousRecord(ctx, c, base.Add(5*time.Second), lo)
		require.NoError(t, err)
		assert.Equal(t, first, prev.ID)

		_, err = store.PreviousRecord(ctx, c, base, first)
		assert.ErrorIs(t, err, traffic.ErrNotFound)
	})
}
