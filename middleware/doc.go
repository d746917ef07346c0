// Package middleware provides handler.Middleware components for the session
// guard: client identity extraction, the guard pipeline and request logging.
//
// All middleware follows the same pattern: a generic constructor over the
// handler.Context type, a WithConfig variant taking a config struct with an
// optional Skip function, and helpers reading stored values back.
//
//	type Ctx = *handler.RequestContext
//
//	mux.Handle("GET /", handler.Default(index,
//		middleware.ClientIP[Ctx](clientip.WithCustomHeader("X-Visitor")),
//		middleware.Logging[Ctx](log),
//		middleware.Guard[Ctx](g),
//	))
//
//	func index(ctx Ctx) handler.Response {
//		ip, _ := middleware.GetClientIP(ctx)
//		...
//	}
//
// Guard answers blocked clients with 403 without calling the handler and
// hands every rendered response to the pipeline. It is equivalent to
// guard.Guard.Handler for handler-based routes.
package middleware
