// Package server wraps http.Server with graceful shutdown for errgroup-based
// lifecycles.
//
//	srv, err := server.NewFromConfig(cfg,
//		server.WithLogger(log),
//		server.WithShutdownHook(func(ctx context.Context) error { return g.Stop() }),
//	)
//	eg.Go(srv.Run(ctx, handler))
//
// On shutdown the listener stops accepting connections, in-flight requests
// finish, and then the hooks run, all bounded by ShutdownTimeout. Hooks are
// where post-response work is drained.
//
// Configuration is read from SERVER_* variables (see Config). TLS is enabled
// when both SERVER_TLS_CERT_FILE and SERVER_TLS_KEY_FILE are set.
package server
