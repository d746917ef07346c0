package guard

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/sessionguard/core/dispatch"
	"github.com/dmitrymomot/sessionguard/core/lease"
	"github.com/dmitrymomot/sessionguard/core/segment"
	"github.com/dmitrymomot/sessionguard/pkg/classifier"
	"github.com/dmitrymomot/sessionguard/pkg/clientip"
)

// Option configures a Guard.
type Option func(*options)

type options struct {
	strategy   segment.Strategy
	notifier   classifier.Notifier
	locker     lease.Locker
	dispatcher *dispatch.Dispatcher
	ipOptions  []clientip.Option
	logger     *slog.Logger
	now        func() time.Time
}

// WithSegmentStrategy replaces the built-in session segmentation.
func WithSegmentStrategy(fn segment.Strategy) Option {
	return func(o *options) {
		o.strategy = fn
	}
}

// WithNotifier sets where closed sessions are announced. It replaces the HTTP
// classifier built from the configuration and enables completion detection.
func WithNotifier(n classifier.Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithLocker sets the per-client lease used by segmentation.
// Defaults to an in-process lease.Keyed.
func WithLocker(l lease.Locker) Option {
	return func(o *options) {
		o.locker = l
	}
}

// WithDispatcher runs continuations on d instead of a dispatcher of its own.
func WithDispatcher(d *dispatch.Dispatcher) Option {
	return func(o *options) {
		o.dispatcher = d
	}
}

// WithClientIPOptions adds identity extraction options, e.g. clientip.WithSourceIP.
func WithClientIPOptions(opts ...clientip.Option) Option {
	return func(o *options) {
		o.ipOptions = append(o.ipOptions, opts...)
	}
}

// WithLogger sets the logger shared by every pipeline component.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.logger = log
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
