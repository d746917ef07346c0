// Package guard wires the session guard pipeline into an HTTP server.
//
// On request start the client identity is extracted, its sighting recorded
// and the reputation gate consulted; a blacklisted client gets 403 and
// nothing else runs. After the response is finalized a continuation is handed
// to a dispatch.Dispatcher: under the client's lease the request is recorded
// and the client's sessions are segmented, then every session closed by the
// run is announced to the classifier. When the lease cannot be had in time the
// record is stored unsegmented and the client's next run resolves it. No store or classifier failure reaches the response.
//
// Basic usage:
//
//	var cfg guard.Config
//	config.MustLoad(&cfg)
//	g := guard.New(cfg, store, guard.WithLogger(log), guard.WithLocker(redisLease))
//	if !g.Enabled() {
//		log.Warn("guard disabled", logger.Error(g.Err()))
//	}
//
//	eg.Go(g.Run(ctx))
//	http.ListenAndServe(":8080", g.Handler(mux))
//
// Invalid configuration never fails construction. The guard is built disabled
// and every entry point passes requests through untouched, so a bad setting
// cannot take the site down.
//
// The classifier requires session grouping. Enabling it with
// GroupToSessions=false is a configuration error.
package guard
