// Package handler provides type-safe handlers over a custom request context
// and composable middleware.
//
//	type Response func(w http.ResponseWriter, r *http.Request) error
//	type HandlerFunc[C Context] func(ctx C) Response
//	type Middleware[C Context] func(next HandlerFunc[C]) HandlerFunc[C]
//
// RequestContext is the default Context. It delegates context.Context to the
// request and keeps values stored with SetValue on the request context, so
// the Response sees them through r.Context().
//
//	mux.Handle("GET /orders/{id}", handler.Default(showOrder,
//		middleware.ClientIP[*handler.RequestContext](),
//		middleware.Guard[*handler.RequestContext](g),
//	))
//
// Chain composes middlewares around an endpoint, first one outermost. HTTP
// adapts the result to net/http for any context type.
package handler
