package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/sessionguard/core/handler"
	"github.com/dmitrymomot/sessionguard/core/logger"
)

// Check is a named dependency readiness check.
type Check struct {
	Name string
	Fn   func(context.Context) error
}

// Readiness verifies all service dependencies are functioning.
// Returns "READY" if all checks pass, 503 Service Unavailable if any fail.
// Every check runs so each failure is logged.
//
// Example:
//
//	health.Readiness[*handler.RequestContext](log,
//		health.Check{Name: "mongodb", Fn: mongo.Healthcheck(client)},
//		health.Check{Name: "dispatcher", Fn: g.Dispatcher().Healthcheck},
//	)
func Readiness[C handler.Context](log *slog.Logger, checks ...Check) handler.HandlerFunc[C] {
	if log == nil {
		log = logger.Nop()
	}
	return func(ctx C) handler.Response {
		ready := true
		for _, c := range checks {
			if err := c.Fn(ctx); err != nil {
				ready = false
				log.ErrorContext(ctx, "readiness check failed",
					logger.Component("health"),
					slog.String("check", c.Name),
					logger.Error(err))
			}
		}

		if !ready {
			return text(http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable))
		}
		return text(http.StatusOK, "READY")
	}
}
