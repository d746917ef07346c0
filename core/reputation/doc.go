// Package reputation implements the IP reputation gate.
//
// Every request records a sighting of its client and is checked against the
// persisted blacklist. A flagged client is blocked for blockDuration from the
// moment it was flagged. Expiry is lazy: there is no sweeper, the first check
// after the window elapses clears the flag with a conditional write and admits
// the request.
//
// The gate fails open. Any store error is logged and the request is admitted,
// so a storage outage never turns into a denial of legitimate traffic.
//
// Blacklist and Unblock are the trust decisions made outside the request path,
// by an operator or by whatever consumes classifier verdicts.
package reputation
