package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/sessionguard/core/logger"
)

// Task is a unit of post-response work.
type Task func(ctx context.Context) error

// Dispatcher runs tasks off the request goroutine on a bounded worker pool.
type Dispatcher struct {
	queue chan Task
	wg    sync.WaitGroup
	mu    sync.RWMutex

	cfg    Config
	logger *slog.Logger

	// State management
	cancel  context.CancelFunc
	running bool
	closed  bool

	// Tasks run on base so they outlive the Start context and are only
	// aborted when shutdown times out.
	base  context.Context
	abort context.CancelFunc

	submitted atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
	active    atomic.Int32
}

// Stats is a snapshot of dispatcher counters.
type Stats struct {
	Submitted int64
	Processed int64
	Failed    int64
	Dropped   int64
	Active    int32
	Queued    int
	IsRunning bool
}

// New creates a dispatcher. Zero config fields take DefaultConfig values.
func New(cfg Config, opts ...Option) *Dispatcher {
	def := DefaultConfig()
	o := &options{Config: cfg, logger: logger.Nop()}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = def.MaxConcurrent
	}
	if o.QueueSize <= 0 {
		o.QueueSize = def.QueueSize
	}
	if o.TaskTimeout <= 0 {
		o.TaskTimeout = def.TaskTimeout
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = def.ShutdownTimeout
	}
	for _, opt := range opts {
		opt(o)
	}

	base, abort := context.WithCancel(context.Background())
	return &Dispatcher{
		queue:  make(chan Task, o.QueueSize),
		cfg:    o.Config,
		logger: o.logger,
		base:   base,
		abort:  abort,
	}
}

// Submit queues task without blocking. It returns false, and the task is
// dropped, when the queue is full or the dispatcher has been stopped.
// Tasks submitted before Start wait in the queue.
func (d *Dispatcher) Submit(task Task) bool {
	if task == nil {
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		d.logger.Warn("dispatcher stopped, task dropped", logger.Component("dispatch"))
		return false
	}

	select {
	case d.queue <- task:
		d.submitted.Add(1)
		return true
	default:
		d.dropped.Add(1)
		d.logger.Warn("dispatch queue full, task dropped",
			logger.Component("dispatch"),
			logger.Count("queue_size", cap(d.queue)))
		return false
	}
}

// Start launches the workers and blocks until ctx is cancelled or Stop is
// called. Use Run for the errgroup pattern.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrStopped
	}
	if d.running {
		d.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, d.cancel = context.WithCancel(ctx)
	d.running = true
	d.wg.Add(d.cfg.MaxConcurrent)
	for range d.cfg.MaxConcurrent {
		go d.work()
	}
	d.mu.Unlock()

	d.logger.InfoContext(ctx, "dispatcher started",
		logger.Component("dispatch"),
		logger.Count("max_concurrent", d.cfg.MaxConcurrent),
		logger.Count("queue_size", d.cfg.QueueSize))

	<-ctx.Done()
	return ctx.Err()
}

// Stop refuses new tasks and waits up to the shutdown timeout for queued and
// running tasks to finish. Tasks still running after the timeout have their
// context cancelled.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return ErrNotStarted
	}
	d.running = false
	d.closed = true
	cancel := d.cancel
	d.cancel = nil
	close(d.queue)
	d.mu.Unlock()

	cancel()

	d.logger.Info("dispatcher stopping, draining tasks",
		logger.Component("dispatch"),
		logger.Count("queued", len(d.queue)),
		slog.Duration("timeout", d.cfg.ShutdownTimeout))

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	ctx, ctxCancel := context.WithTimeout(context.Background(), d.cfg.ShutdownTimeout)
	defer ctxCancel()

	select {
	case <-done:
		d.abort()
		d.logger.Info("dispatcher stopped cleanly", logger.Component("dispatch"))
		return nil
	case <-ctx.Done():
		d.abort()
		d.logger.Warn("dispatcher shutdown timeout exceeded, tasks abandoned",
			logger.Component("dispatch"),
			logger.Count("queued", len(d.queue)),
			slog.Duration("timeout", d.cfg.ShutdownTimeout))
		return fmt.Errorf("%w after %s", ErrShutdownTimeout, d.cfg.ShutdownTimeout)
	}
}

// Run provides errgroup compatibility. The returned function starts the
// dispatcher and drains it once ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- d.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			err := d.drain()
			<-errCh
			return err
		case err := <-errCh:
			if ctx.Err() != nil {
				return d.drain()
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

// drain stops the dispatcher, ignoring a Stop that already happened.
func (d *Dispatcher) drain() error {
	if err := d.Stop(); err != nil && !errors.Is(err, ErrNotStarted) {
		return err
	}
	return nil
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for task := range d.queue {
		if d.base.Err() != nil {
			d.dropped.Add(1)
			continue
		}
		d.execute(task)
	}
}

func (d *Dispatcher) execute(task Task) {
	d.active.Add(1)
	defer d.active.Add(-1)

	ctx, cancel := context.WithTimeout(d.base, d.cfg.TaskTimeout)
	defer cancel()

	if err := d.safeRun(ctx, task); err != nil {
		d.failed.Add(1)
		d.logger.ErrorContext(ctx, "dispatched task failed",
			logger.Component("dispatch"),
			logger.Error(err))
		return
	}
	d.processed.Add(1)
}

func (d *Dispatcher) safeRun(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
	}()
	return task(ctx)
}

// Stats returns current counters. Safe for concurrent use.
func (d *Dispatcher) Stats() Stats {
	d.mu.RLock()
	running := d.running
	d.mu.RUnlock()

	return Stats{
		Submitted: d.submitted.Load(),
		Processed: d.processed.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
		Active:    d.active.Load(),
		Queued:    len(d.queue),
		IsRunning: running,
	}
}

// Healthcheck reports an error when the dispatcher is not running or its
// queue is full.
func (d *Dispatcher) Healthcheck(context.Context) error {
	stats := d.Stats()
	if !stats.IsRunning {
		return errors.Join(ErrHealthcheckFailed, ErrNotStarted)
	}
	if stats.Queued >= cap(d.queue) {
		return errors.Join(ErrHealthcheckFailed, ErrOverloaded,
			fmt.Errorf("%d/%d queued", stats.Queued, cap(d.queue)))
	}
	return nil
}
