package dispatch

import (
	"log/slog"
	"time"
)

// Option configures a Dispatcher.
type Option func(*options)

type options struct {
	Config
	logger *slog.Logger
}

// WithMaxConcurrent sets the number of workers.
func WithMaxConcurrent(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.MaxConcurrent = n
		}
	}
}

// WithQueueSize sets how many tasks may wait for a worker.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.QueueSize = n
		}
	}
}

// WithTaskTimeout bounds a single task.
func WithTaskTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.TaskTimeout = d
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for queued and running tasks.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.ShutdownTimeout = d
		}
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.logger = log
		}
	}
}
