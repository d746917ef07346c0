package middleware

import (
	"net/http"
	"time"

	"github.com/dmitrymomot/sessionguard/core/guard"
	"github.com/dmitrymomot/sessionguard/core/handler"
)

// GuardConfig configures the session guard middleware.
type GuardConfig struct {
	// Skip defines a function to skip the pipeline for specific requests
	Skip func(ctx handler.Context) bool
}

// Guard runs the session guard pipeline around the handler.
func Guard[C handler.Context](g *guard.Guard) handler.Middleware[C] {
	return GuardWithConfig[C](g, GuardConfig{})
}

// GuardWithConfig runs the session guard pipeline with custom configuration.
// Blocked clients get the gate's status code and the handler is not called.
// After the response is rendered the request is handed to the pipeline.
func GuardWithConfig[C handler.Context](g *guard.Guard, cfg GuardConfig) handler.Middleware[C] {
	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if g == nil || !g.Enabled() || (cfg.Skip != nil && cfg.Skip(ctx)) {
				return next(ctx)
			}

			d := g.OnRequestStart(ctx.Request())
			if d.Blocked {
				return func(w http.ResponseWriter, _ *http.Request) error {
					w.WriteHeader(d.StatusCode)
					return nil
				}
			}

			resp := next(ctx)

			return func(w http.ResponseWriter, r *http.Request) error {
				rw := guard.NewResponseWriter(w)
				var err error
				if resp != nil {
					err = resp(rw, r)
				}
				rw.Flush()
				g.OnResponseComplete(r, rw.Meta(time.Time{}))
				return err
			}
		}
	}
}
