package traffic

import (
	"net/http"
	"time"
)

// SessionID is the session assignment state of a record.
// The zero value is Unassigned.
type SessionID struct {
	id string
}

// Unassigned returns the state of a record that has not been segmented yet.
func Unassigned() SessionID {
	return SessionID{}
}

// Assigned returns the state of a record that belongs to the session with the given id.
// An empty id yields Unassigned.
func Assigned(id string) SessionID {
	return SessionID{id: id}
}

// Get returns the session id and whether the record is assigned.
func (s SessionID) Get() (string, bool) {
	return s.id, s.id != ""
}

// IsAssigned reports whether the record belongs to a session.
func (s SessionID) IsAssigned() bool {
	return s.id != ""
}

// String returns the session id, or "unassigned".
func (s SessionID) String() string {
	if s.id == "" {
		return "unassigned"
	}
	return s.id
}

// Record is one observed request/response pair.
type Record struct {
	ID           string
	ClientID     string
	Timestamp    time.Time
	Method       string
	URL          string
	FullURL      string
	StatusCode   int
	RequestSize  int64
	ResponseSize int64
	ContentType  string
	UserAgent    string
	// RequestLine is "METHOD /path?query" as received.
	RequestLine string
	Headers     http.Header
	Session     SessionID
}

// OpensSession reports whether the record is the first record of its session.
func (r Record) OpensSession() bool {
	id, ok := r.Session.Get()
	return ok && id == r.ID
}

// Before reports whether r sorts before o in a client's record stream.
// Records are ordered by timestamp; equal timestamps fall back to the store id.
func (r Record) Before(o Record) bool {
	if !r.Timestamp.Equal(o.Timestamp) {
		return r.Timestamp.Before(o.Timestamp)
	}
	return r.ID < o.ID
}
