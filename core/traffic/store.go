package traffic

import (
	"context"
	"time"
)

// ClientStore persists client reputation entries.
// Every method must be atomic for its key.
type ClientStore interface {
	// EnsureClient creates a default entry for clientID unless one exists.
	EnsureClient(ctx context.Context, clientID string) error

	// GetClient returns the entry for clientID or ErrNotFound.
	GetClient(ctx context.Context, clientID string) (*ClientEntry, error)

	// SetBlacklisted flags clientID starting a new penalty window at the given time.
	// Creates the entry when missing.
	SetBlacklisted(ctx context.Context, clientID string, at time.Time) error

	// ClearBlacklist unflags clientID only if it is still flagged with the given
	// window start. Reports whether the entry was changed.
	ClearBlacklist(ctx context.Context, clientID string, blacklistedAt time.Time) (bool, error)
}

// RecordStore persists traffic records.
// Every method must be atomic for its key.
type RecordStore interface {
	// InsertRecord persists rec and returns the store-assigned id.
	InsertRecord(ctx context.Context, rec *Record) (string, error)

	// GetRecord returns the record with the given id or ErrNotFound.
	GetRecord(ctx context.Context, id string) (*Record, error)

	// RecentRecords returns the records of clientID with a timestamp at or after since,
	// ordered by timestamp then id, ascending.
	RecentRecords(ctx context.Context, clientID string, since time.Time) ([]Record, error)

	// AssignSession sets the session of recordID only while it is still unassigned.
	// Reports whether this call performed the assignment.
	AssignSession(ctx context.Context, recordID, sessionID string) (bool, error)

	// CountSession returns the number of records assigned to sessionID.
	CountSession(ctx context.Context, sessionID string) (int, error)

	// PreviousRecord returns the record of clientID that immediately precedes the
	// position (before, beforeID) in stream order: an earlier timestamp, or the
	// same timestamp and a smaller id. Returns ErrNotFound when none exists.
	PreviousRecord(ctx context.Context, clientID string, before time.Time, beforeID string) (*Record, error)
}

// Store combines both repositories. Implementations serve as the single
// coordination point shared by all concurrent request pipelines.
type Store interface {
	ClientStore
	RecordStore
}
