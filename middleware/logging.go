package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/sessionguard/core/guard"
	"github.com/dmitrymomot/sessionguard/core/handler"
	"github.com/dmitrymomot/sessionguard/core/logger"
)

// DefaultSlowRequest is the latency above which a request is logged as slow.
const DefaultSlowRequest = 5 * time.Second

// LoggingConfig configures the access log middleware.
type LoggingConfig struct {
	Skip   func(ctx handler.Context) bool
	Logger *slog.Logger
	// Slow raises the level to warn for requests slower than this
	Slow time.Duration
}

// Logging writes one access log line per request.
func Logging[C handler.Context](log *slog.Logger) handler.Middleware[C] {
	return LoggingWithConfig[C](LoggingConfig{Logger: log})
}

// LoggingWithConfig is Logging with custom configuration. 5xx responses and
// handler errors are logged at error level.
func LoggingWithConfig[C handler.Context](cfg LoggingConfig) handler.Middleware[C] {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	slow := cfg.Slow
	if slow <= 0 {
		slow = DefaultSlowRequest
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			started := time.Now()
			resp := next(ctx)

			return func(w http.ResponseWriter, r *http.Request) error {
				rw := guard.NewResponseWriter(w)
				var err error
				if resp != nil {
					err = resp(rw, r)
				}
				elapsed := time.Since(started)

				level := slog.LevelInfo
				if elapsed > slow {
					level = slog.LevelWarn
				}
				if err != nil || rw.Status() >= http.StatusInternalServerError {
					level = slog.LevelError
				}

				attrs := []slog.Attr{
					logger.Component("http"),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.StatusCode(rw.Status()),
					slog.Int64("bytes", rw.Size()),
					logger.Duration(elapsed),
				}
				if id, ok := GetClientIP(ctx); ok {
					attrs = append(attrs, logger.ClientID(id))
				}
				if err != nil {
					attrs = append(attrs, logger.Error(err))
				}

				log.LogAttrs(r.Context(), level, "request completed", attrs...)
				return err
			}
		}
	}
}
