package traffic

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store in process memory for tests and single-process deployments.
// Ids are UUIDv7, so they sort in insertion order.
type MemoryStore struct {
	mu      sync.RWMutex
	clients map[string]*ClientEntry
	records map[string]*Record

	// Index of record ids per client for window queries
	byClient map[string][]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clients:  make(map[string]*ClientEntry),
		records:  make(map[string]*Record),
		byClient: make(map[string][]string),
	}
}

func (ms *MemoryStore) EnsureClient(ctx context.Context, clientID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.clients[clientID]; !ok {
		ms.clients[clientID] = &ClientEntry{ClientID: clientID, CreatedAt: time.Now()}
	}
	return nil
}

func (ms *MemoryStore) GetClient(ctx context.Context, clientID string) (*ClientEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	e, ok := ms.clients[clientID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (ms *MemoryStore) SetBlacklisted(ctx context.Context, clientID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	e, ok := ms.clients[clientID]
	if !ok {
		e = &ClientEntry{ClientID: clientID, CreatedAt: time.Now()}
		ms.clients[clientID] = e
	}
	e.Blacklisted = true
	e.BlacklistedAt = at
	return nil
}

func (ms *MemoryStore) ClearBlacklist(ctx context.Context, clientID string, blacklistedAt time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	e, ok := ms.clients[clientID]
	if !ok || !e.Blacklisted || !e.BlacklistedAt.Equal(blacklistedAt) {
		return false, nil
	}
	e.Blacklisted = false
	return true, nil
}

func (ms *MemoryStore) InsertRecord(ctx context.Context, rec *Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if rec == nil {
		return "", ErrInvalidRecord
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	cp := copyRecord(rec)
	cp.ID = id.String()
	ms.records[cp.ID] = cp
	ms.byClient[cp.ClientID] = append(ms.byClient[cp.ClientID], cp.ID)

	return cp.ID, nil
}

func (ms *MemoryStore) GetRecord(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	rec, ok := ms.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRecord(rec), nil
}

func (ms *MemoryStore) RecentRecords(ctx context.Context, clientID string, since time.Time) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.mu.RLock()
	result := make([]Record, 0, len(ms.byClient[clientID]))
	for _, id := range ms.byClient[clientID] {
		rec := ms.records[id]
		if !rec.Timestamp.Before(since) {
			result = append(result, *copyRecord(rec))
		}
	}
	ms.mu.RUnlock()

	slices.SortFunc(result, compareRecords)
	return result, nil
}

func (ms *MemoryStore) AssignSession(ctx context.Context, recordID, sessionID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	rec, ok := ms.records[recordID]
	if !ok {
		return false, ErrNotFound
	}
	if rec.Session.IsAssigned() {
		return false, nil
	}
	rec.Session = Assigned(sessionID)
	return true, nil
}

func (ms *MemoryStore) CountSession(ctx context.Context, sessionID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	n := 0
	for _, rec := range ms.records {
		if id, ok := rec.Session.Get(); ok && id == sessionID {
			n++
		}
	}
	return n, nil
}

func (ms *MemoryStore) PreviousRecord(ctx context.Context, clientID string, before time.Time, beforeID string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	pos := Record{ID: beforeID, Timestamp: before}
	var latest *Record
	for _, id := range ms.byClient[clientID] {
		rec := ms.records[id]
		if !rec.Before(pos) {
			continue
		}
		if latest == nil || latest.Before(*rec) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return copyRecord(latest), nil
}

// Len returns the number of stored records.
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.records)
}

// copyRecord detaches the header map so callers never share it with the store.
func copyRecord(rec *Record) *Record {
	cp := *rec
	cp.Headers = rec.Headers.Clone()
	return &cp
}

func compareRecords(a, b Record) int {
	switch {
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	default:
		return 0
	}
}
