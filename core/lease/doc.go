// Package lease provides the per-client serialization point around session
// assignment.
//
// Session segmentation reads a client's recent records, decides assignments and
// writes them back. Two concurrent runs for the same client could each decide to
// open a session, so the read-decide-write sequence runs under a lease keyed by
// client id:
//
//	release, err := locker.Acquire(ctx, clientID)
//	if err != nil {
//		return err // lease.ErrLockTimeout after the bounded wait
//	}
//	defer release(context.WithoutCancel(ctx))
//
// Redis holds leases as SET NX PX keys with a random token and releases them
// with a compare-and-delete script; use it whenever more than one process
// shares the store. Keyed is the in-process equivalent.
//
// Redis implements Expiring: a lease lapses after its TTL even while the holder
// still works, so holders bound their work by it.
//
// Both implementations bound the wait, and a slow client only ever blocks
// requests of that same client.
package lease
