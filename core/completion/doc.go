// Package completion detects closed sessions.
//
// A session is complete once the client's next session opens. The pipeline
// calls Detector.OnRecorded for every record whose session it just assigned;
// when that record opened a session and the client has an earlier record, the
// earlier record's session is announced through a classifier.Notifier.
// Records that joined a session, or that are still unassigned, produce
// nothing. Since each record is assigned exactly once, each closed session is
// announced at most once.
package completion
