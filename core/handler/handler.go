package handler

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/sessionguard/core/logger"
)

// Response is a function that renders HTTP responses.
// It sets headers, status code, and writes the response body.
type Response func(w http.ResponseWriter, r *http.Request) error

// HandlerFunc is a type-safe HTTP request handler with custom context support.
type HandlerFunc[C Context] func(ctx C) Response

// ErrorHandler handles errors returned while rendering a response.
type ErrorHandler[C Context] func(ctx C, err error)

// Middleware wraps handlers to add cross-cutting functionality.
type Middleware[C Context] func(next HandlerFunc[C]) HandlerFunc[C]

// Chain wraps endpoint in middlewares; the first middleware runs first.
func Chain[C Context](endpoint HandlerFunc[C], middlewares ...Middleware[C]) HandlerFunc[C] {
	h := endpoint
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// HTTP adapts h to net/http. newCtx builds the context per request; onError
// may be nil, in which case render errors are logged and answered with 500
// when nothing was written yet.
func HTTP[C Context](newCtx func(http.ResponseWriter, *http.Request) C, h HandlerFunc[C], onError ErrorHandler[C]) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := newCtx(w, r)
		resp := h(ctx)
		if resp == nil {
			return
		}
		if err := resp(w, ctx.Request()); err != nil {
			if onError != nil {
				onError(ctx, err)
				return
			}
			slog.Default().ErrorContext(ctx, "failed to render response",
				logger.Path(r.URL.Path),
				logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})
}

// Default adapts a handler over RequestContext.
func Default(h HandlerFunc[*RequestContext], middlewares ...Middleware[*RequestContext]) http.Handler {
	return HTTP(NewContext, Chain(h, middlewares...), nil)
}
