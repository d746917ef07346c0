package segment

import (
	"log/slog"
	"time"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLookback sets how far back records are read per run.
func WithLookback(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.lookback = d
		}
	}
}

// WithStrategy replaces the built-in algorithm with fn.
func WithStrategy(fn Strategy) Option {
	return func(e *Engine) {
		e.strategy = fn
	}
}

// WithClock replaces time.Now for the lookback window.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.logger = log
		}
	}
}
