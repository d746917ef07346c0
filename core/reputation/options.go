package reputation

import (
	"log/slog"
	"time"
)

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger for gate decisions and store failures.
func WithLogger(log *slog.Logger) Option {
	return func(g *Gate) {
		if log != nil {
			g.logger = log
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}
