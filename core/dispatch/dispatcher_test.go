package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/sessionguard/core/dispatch"
)

func start(t *testing.T, d *dispatch.Dispatcher) {
	t.Helper()
	go func() { _ = d.Start(context.Background()) }()
	require.Eventually(t, func() bool { return d.Stats().IsRunning }, time.Second, time.Millisecond)
}

func TestDispatcher_RunsSubmittedTasks(t *testing.T) {
	t.Parallel()

	d := dispatch.New(dispatch.Config{}, dispatch.WithMaxConcurrent(4))
	start(t, d)

	var n atomic.Int32
	for range 50 {
		require.True(t, d.Submit(func(context.Context) error {
			n.Add(1)
			return nil
		}))
	}

	require.NoError(t, d.Stop())
	assert.Equal(t, int32(50), n.Load())

	stats := d.Stats()
	assert.Equal(t, int64(50), stats.Submitted)
	assert.Equal(t, int64(50), stats.Processed)
	assert.False(t, stats.IsRunning)
}

func TestDispatcher_SubmitBeforeStart(t *testing.T) {
	t.Parallel()

	d := dispatch.New(dispatch.Config{})
	done := make(chan struct{})
	require.True(t, d.Submit(func(context.Context) error {
		close(done)
		return nil
	}))

	start(t, d)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("queued task did not run after Start")
	}
	require.NoError(t, d.Stop())
}

func TestDispatcher_SubmitNeverBlocks(t *testing.T) {
	t.Parallel()

	d := dispatch.New(dispatch.Config{}, dispatch.WithMaxConcurrent(1), dispatch.WithQueueSize(2))

	block := make(chan struct{})
	task := func(context.Context) error {
		<-block
		return nil
	}

	// Not started: the queue holds two tasks, the third is dropped.
	assert.True(t, d.Submit(task))
	assert.True(t, d.Submit(task))

	begin := time.Now()
	assert.False(t, d.Submit(task))
	assert.Less(t, time.Since(begin), 100*time.Millisecond)
	assert.Equal(t, int64(1), d.Stats().Dropped)

	close(block)
	start(t, d)
	require.NoError(t, d.Stop())
	assert.Equal(t, int64(2), d.Stats().Processed)
}

func TestDispatcher_FailuresAndPanics(t *testing.T) {
	t.Parallel()

	d := dispatch.New(dispatch.Config{})
	start(t, d)

	d.Submit(func(context.Context) error { return errors.New("boom") })
	d.Submit(func(context.Context) error { panic("bad task") })
	d.Submit(func(context.Context) error { return nil })

	require.NoError(t, d.Stop())

	stats := d.Stats()
	assert.Equal(t, int64(2), stats.Failed)
	assert.Equal(t, int64(1), stats.Processed)
}

func TestDispatcher_TaskTimeout(t *testing.T) {
	t.Parallel()

	d := dispatch.New(dispatch.Config{}, dispatch.WithTaskTimeout(20*time.Millisecond))
	start(t, d)

	var got error
	d.Submit(func(ctx context.Context) error {
		<-ctx.Done()
		got = ctx.Err()
		return got
	})

	require.NoError(t, d.Stop())
	assert.ErrorIs(t, got, context.DeadlineExceeded)
}

func TestDispatcher_StopDrainsQueue(t *testing.T) {
	t.Parallel()

	d := dispatch.New(dispatch.Config{}, dispatch.WithMaxConcurrent(1))
	start(t, d)

	var (
		mu    sync.Mutex
		order []int
	)
	for i := range 5 {
		d.Submit(func(context.Context) error {
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}

	require.NoError(t, d.Stop())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)

	assert.False(t, d.Submit(func(context.Context) error { return nil }), "stopped dispatcher refuses tasks")
	assert.ErrorIs(t, d.Start(context.Background()), dispatch.ErrStopped)
}

func TestDispatcher_ShutdownTimeout(t *testing.T) {
	t.Parallel()

	d := dispatch.New(dispatch.Config{}, dispatch.WithShutdownTimeout(50*time.Millisecond))
	start(t, d)

	started := make(chan struct{})
	aborted := make(chan error, 1)
	d.Submit(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		aborted <- ctx.Err()
		return ctx.Err()
	})
	<-started

	err := d.Stop()
	assert.ErrorIs(t, err, dispatch.ErrShutdownTimeout)

	select {
	case err := <-aborted:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("running task was not cancelled after the shutdown timeout")
	}
}

func TestDispatcher_Lifecycle(t *testing.T) {
	t.Parallel()

	d := dispatch.New(dispatch.Config{})
	assert.ErrorIs(t, d.Stop(), dispatch.ErrNotStarted)
	assert.ErrorIs(t, d.Healthcheck(context.Background()), dispatch.ErrNotStarted)

	start(t, d)
	assert.ErrorIs(t, d.Start(context.Background()), dispatch.ErrAlreadyStarted)
	assert.NoError(t, d.Healthcheck(context.Background()))
	require.NoError(t, d.Stop())
}

func TestDispatcher_Run(t *testing.T) {
	t.Parallel()

	d := dispatch.New(dispatch.Config{})
	ctx, cancel := context.WithCancel(context.Background())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(d.Run(gctx))

	require.Eventually(t, func() bool { return d.Stats().IsRunning }, time.Second, time.Millisecond)

	var ran atomic.Bool
	d.Submit(func(context.Context) error {
		ran.Store(true)
		return nil
	})

	cancel()
	require.NoError(t, g.Wait())
	assert.True(t, ran.Load(), "queued task drains on shutdown")
	assert.False(t, d.Stats().IsRunning)
}
