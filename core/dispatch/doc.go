// Package dispatch runs post-response work on a bounded worker pool.
//
// Submit never blocks: when the queue is full the task is dropped and a
// warning logged, so a slow store can never hold a request goroutine. Workers
// recover panics and bound every task with TaskTimeout. Tasks run on a context
// detached from the request and from Start, so cancelling either does not
// interrupt work already accepted.
//
//	d := dispatch.New(cfg, dispatch.WithLogger(log))
//	g.Go(d.Run(ctx))
//	d.Submit(func(ctx context.Context) error { ... })
//
// Stop refuses new tasks and drains the queue within ShutdownTimeout. Stats
// and Healthcheck expose the counters.
package dispatch
