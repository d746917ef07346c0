// Package segment groups each client's requests into behavioral sessions.
//
// A run reads the client's records from the lookback window (10 minutes by
// default) in chronological order and resolves every unassigned one:
//
//   - the earliest record of the window opens a session (its id becomes the session id)
//   - a later record opens a session when the gap to its predecessor exceeds
//     maxGap, or when the predecessor's session already holds maxCount records
//   - otherwise it joins the predecessor's session
//
// For timestamps [0 5 40 41 200] seconds with maxGap=30s this gives the
// sessions {0,5} {40,41} {200}.
//
// The whole read-decide-write sequence runs under a per-client lease from
// package lease, which makes assignment linearizable per client. Writes are
// also conditional on the record still being unassigned, so a run never
// changes an existing assignment and a run that stops half way leaves the rest
// for the next one.
//
// Append extends that run to the insert itself: the new record is stamped and
// persisted while the lease is held, one millisecond past the newest record of
// the window when its own completion time is not later. A request that
// finishes early but reaches the engine late therefore never lands behind a
// record that was already segmented. With an expiring lease (lease.Redis) the
// run's context ends before the lease lapses and the run fails with
// ErrLeaseExpired instead of writing unprotected.
//
// WithStrategy swaps the algorithm for a caller function. The engine then only
// awaits it; consistency of what it writes is up to the caller.
package segment
