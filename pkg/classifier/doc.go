// Package classifier delivers session-closed notifications to the downstream
// classifier.
//
// HTTP posts {"sessionID": "<id>"} to http://host:port/api with an explicit
// timeout and an optional fixed-interval retry. The classifier's response is
// logged and otherwise ignored.
//
//	n, err := classifier.NewHTTP(classifier.HTTPConfig{Host: "localhost", Port: 5000},
//		classifier.WithLogger(log))
//
// NATS publishes the full Notification as JSON to a subject for event-driven
// consumers. Multi fans out to several notifiers, Noop discards.
//
// Every failure is wrapped with ErrNotificationFailed. Callers log it and move
// on; a lost notification is never retried later.
package classifier
