// Package logger builds slog loggers and provides attribute helpers shared by
// every sessionguard component.
//
//	log := logger.New(
//		logger.WithProduction("sessionguard"),
//		logger.WithContextValue("request_id", requestIDKey{}),
//	)
//
//	log.WarnContext(ctx, "client blocked",
//		logger.Component("reputation"),
//		logger.ClientID(clientID),
//		logger.Decision("block"),
//	)
//
// Helpers return an empty slog.Attr for nil errors and empty ids, so they can
// be passed unconditionally. ClientID is the exception: an unresolved client
// is logged as "<unresolved>" because all such requests share one bucket.
//
// Components that accept a *slog.Logger default to Nop().
package logger
