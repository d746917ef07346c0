// Package health provides liveness and readiness handlers.
//
// Liveness always answers "ALIVE". Readiness runs every Check and answers
// "READY", or 503 when any check fails; failures are logged with the check
// name. The store integrations and the dispatcher expose Healthcheck
// functions with the matching signature.
package health
