// Package recorder persists one traffic record per completed request.
//
// Records are written with an unassigned session and stamped, at millisecond
// precision, with the time the response was finalized. Recording runs on the detached post-response
// continuation, never on the request goroutine, so a slow store does not delay
// the response.
package recorder
