package middleware

import (
	"net/http"

	"github.com/dmitrymomot/sessionguard/core/handler"
	"github.com/dmitrymomot/sessionguard/pkg/clientip"
)

type clientIPKey struct{}

// ClientIPConfig configures the client identity middleware.
type ClientIPConfig struct {
	// Skip bypasses extraction for matching requests
	Skip func(ctx handler.Context) bool
	// ResponseHeader, when set, echoes the identity back in that header
	ResponseHeader string
	// ValidateFunc rejects the request with 403 when it returns an error
	ValidateFunc func(ctx handler.Context, ip string) error
	// Options tune extraction, e.g. clientip.WithCustomHeader
	Options []clientip.Option
}

// ClientIP resolves the client identity once per request and stores it in the
// request context, where GetClientIP reads it.
func ClientIP[C handler.Context](opts ...clientip.Option) handler.Middleware[C] {
	return ClientIPWithConfig[C](ClientIPConfig{Options: opts})
}

// ClientIPWithConfig is ClientIP with custom configuration.
func ClientIPWithConfig[C handler.Context](cfg ClientIPConfig) handler.Middleware[C] {
	resolve := clientip.New(cfg.Options...)

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			ip := resolve(ctx.Request())
			ctx.SetValue(clientIPKey{}, ip)

			if cfg.ValidateFunc != nil && cfg.ValidateFunc(ctx, ip) != nil {
				return forbidden
			}

			resp := next(ctx)
			if cfg.ResponseHeader == "" || resp == nil {
				return resp
			}
			return func(w http.ResponseWriter, r *http.Request) error {
				w.Header().Set(cfg.ResponseHeader, ip)
				return resp(w, r)
			}
		}
	}
}

// GetClientIP returns the identity stored by ClientIP.
func GetClientIP(ctx handler.Context) (string, bool) {
	ip, ok := ctx.Value(clientIPKey{}).(string)
	return ip, ok
}

func forbidden(w http.ResponseWriter, _ *http.Request) error {
	w.WriteHeader(http.StatusForbidden)
	return nil
}
