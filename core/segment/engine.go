package segment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/sessionguard/core/lease"
	"github.com/dmitrymomot/sessionguard/core/logger"
	"github.com/dmitrymomot/sessionguard/core/recorder"
	"github.com/dmitrymomot/sessionguard/core/traffic"
)

// DefaultLookback bounds how far back a client's records are read per run.
const DefaultLookback = 10 * time.Minute

// Input is what a segmentation run knows about the request that triggered it.
type Input struct {
	ClientID string
	RecordID string
	Request  recorder.RequestMeta
	Response recorder.ResponseMeta
}

// Strategy replaces the built-in algorithm. The engine awaits it and makes no
// consistency guarantee about what it writes.
type Strategy func(ctx context.Context, in Input) error

// Assignment is a session assignment written by a run.
type Assignment struct {
	RecordID  string
	SessionID string
}

// Opened reports whether the assignment opened a new session.
func (a Assignment) Opened() bool {
	return a.RecordID == a.SessionID
}

// Engine partitions each client's record stream into sessions.
type Engine struct {
	store    traffic.RecordStore
	locker   lease.Locker
	maxGap   time.Duration
	maxCount int
	lookback time.Duration
	strategy Strategy
	now      func() time.Time
	logger   *slog.Logger
}

// New creates an engine. A record joins the preceding record's session unless
// the gap between them exceeds maxGap or that session already holds maxCount
// records.
func New(store traffic.RecordStore, locker lease.Locker, maxGap time.Duration, maxCount int, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if maxGap <= 0 {
		return nil, fmt.Errorf("%w: max gap %s", ErrInvalidThreshold, maxGap)
	}
	if maxCount <= 0 {
		return nil, fmt.Errorf("%w: max count %d", ErrInvalidThreshold, maxCount)
	}

	e := &Engine{
		store:    store,
		locker:   locker,
		maxGap:   maxGap,
		maxCount: maxCount,
		lookback: DefaultLookback,
		now:      time.Now,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.locker == nil && e.strategy == nil {
		return nil, ErrLockerRequired
	}
	return e, nil
}

// CustomStrategy reports whether a caller-supplied strategy replaces the algorithm.
func (e *Engine) CustomStrategy() bool {
	return e.strategy != nil
}

// Segment runs the configured strategy for in. With the built-in algorithm it
// returns the assignments it wrote; with a custom strategy it returns none.
func (e *Engine) Segment(ctx context.Context, in Input) ([]Assignment, error) {
	if e.strategy != nil {
		if err := e.strategy(ctx, in); err != nil {
			return nil, errors.Join(ErrStrategyFailed, err)
		}
		return nil, nil
	}
	return e.AssignSession(ctx, in.ClientID, in.RecordID)
}

// Insert persists the triggering record stamped at the given time and returns
// its id. ok=false means nothing was written.
type Insert func(ctx context.Context, at time.Time) (id string, ok bool)

// Append persists a new record of clientID through insert and segments the
// client's window, both under the client's lease. The stamp is at, raised just
// past the latest record of the window when needed, so a client's stream order
// always matches insertion order and no record lands behind one that was
// already segmented. It returns the id of the inserted record, empty when
// insert reported nothing written.
func (e *Engine) Append(ctx context.Context, clientID string, at time.Time, insert Insert) (string, []Assignment, error) {
	leased, release, err := e.hold(ctx, clientID)
	if err != nil {
		return "", nil, err
	}
	defer release()

	recs, err := e.store.RecentRecords(leased, clientID, e.now().Add(-e.lookback))
	if err != nil {
		// Keep the record; the next run segments it.
		id, _ := insert(leased, at.Truncate(recorder.Precision))
		return id, nil, e.expired(ctx, leased, fmt.Errorf("segment: load records: %w", err))
	}

	at = stampAfter(recs, at)
	id, ok := insert(leased, at)
	if !ok {
		return "", nil, nil
	}

	recs = append(recs, traffic.Record{ID: id, ClientID: clientID, Timestamp: at, Session: traffic.Unassigned()})
	assignments, err := e.run(leased, clientID, id, recs)
	return id, assignments, e.expired(ctx, leased, err)
}

// AssignSession resolves every unassigned record in the client's recent window,
// in chronological order, under the client's lease. recordID only identifies the
// triggering record for logging; records left unassigned by earlier failed runs
// are resolved too. Each write is conditional, so a record already assigned is
// never changed and a partial run leaves the rest for the next one.
func (e *Engine) AssignSession(ctx context.Context, clientID, recordID string) ([]Assignment, error) {
	leased, release, err := e.hold(ctx, clientID)
	if err != nil {
		return nil, err
	}
	defer release()

	recs, err := e.store.RecentRecords(leased, clientID, e.now().Add(-e.lookback))
	if err != nil {
		return nil, e.expired(ctx, leased, fmt.Errorf("segment: load records: %w", err))
	}

	assignments, err := e.run(leased, clientID, recordID, recs)
	return assignments, e.expired(ctx, leased, err)
}

// hold acquires the lease of clientID. With an expiring lease the returned
// context ends a tenth of the TTL before the lease lapses, so no write of the
// run can land after another holder took over.
func (e *Engine) hold(ctx context.Context, clientID string) (context.Context, func(), error) {
	release, err := e.locker.Acquire(ctx, clientID)
	if err != nil {
		return nil, nil, fmt.Errorf("segment: acquire lease for %q: %w", clientID, err)
	}

	leased, cancel := ctx, context.CancelFunc(func() {})
	if exp, ok := e.locker.(lease.Expiring); ok {
		ttl := exp.TTL()
		leased, cancel = context.WithTimeout(ctx, ttl-ttl/10)
	}

	return leased, func() {
		cancel()
		if err := release(context.WithoutCancel(ctx)); err != nil {
			e.logger.WarnContext(ctx, "failed to release segmentation lease",
				logger.Component("segment"),
				logger.ClientID(clientID),
				logger.Error(err))
		}
	}, nil
}

// expired marks err as caused by the lease running out when the leased
// context ended while the caller's did not.
func (e *Engine) expired(ctx, leased context.Context, err error) error {
	if err != nil && leased.Err() != nil && ctx.Err() == nil {
		return errors.Join(ErrLeaseExpired, err)
	}
	return err
}

func (e *Engine) run(ctx context.Context, clientID, recordID string, recs []traffic.Record) ([]Assignment, error) {
	w := walker{engine: e, counts: make(map[string]int)}
	assignments, err := w.walk(ctx, recs)

	e.logger.DebugContext(ctx, "segmentation run finished",
		logger.Component("segment"),
		logger.ClientID(clientID),
		logger.RecordID(recordID),
		logger.Count("window", len(recs)),
		logger.Count("assigned", len(assignments)),
		logger.Error(err))

	return assignments, err
}

// stampAfter returns at at store precision, moved one tick past the last
// record of the window unless it is already later.
func stampAfter(recs []traffic.Record, at time.Time) time.Time {
	at = at.Truncate(recorder.Precision)
	if n := len(recs); n > 0 {
		if last := recs[n-1].Timestamp; !at.After(last) {
			return last.Add(recorder.Precision).Truncate(recorder.Precision)
		}
	}
	return at
}

// walker holds the state of one pass over a client's window.
type walker struct {
	engine *Engine
	// Records per session, loaded from the store once and kept current locally.
	counts map[string]int
}

func (w *walker) walk(ctx context.Context, recs []traffic.Record) ([]Assignment, error) {
	var (
		assignments []Assignment
		prev        *traffic.Record
	)

	for i := range recs {
		rec := &recs[i]

		if !rec.Session.IsAssigned() {
			sessionID, err := w.decide(ctx, prev, rec)
			if err != nil {
				return assignments, err
			}

			ok, err := w.engine.store.AssignSession(ctx, rec.ID, sessionID)
			if err != nil {
				return assignments, fmt.Errorf("segment: assign %s: %w", rec.ID, err)
			}

			if ok {
				rec.Session = traffic.Assigned(sessionID)
				if sessionID == rec.ID {
					w.counts[sessionID] = 1
				} else {
					w.counts[sessionID]++
				}
				assignments = append(assignments, Assignment{RecordID: rec.ID, SessionID: sessionID})
			} else if err := w.reload(ctx, rec); err != nil {
				return assignments, err
			}
		}

		prev = rec
	}

	return assignments, nil
}

// decide returns the session rec belongs to given its predecessor in the window.
func (w *walker) decide(ctx context.Context, prev, rec *traffic.Record) (string, error) {
	if prev == nil {
		return rec.ID, nil
	}

	prevSession, ok := prev.Session.Get()
	if !ok {
		return rec.ID, nil
	}

	if rec.Timestamp.Sub(prev.Timestamp) > w.engine.maxGap {
		return rec.ID, nil
	}

	n, err := w.count(ctx, prevSession)
	if err != nil {
		return "", err
	}
	if n >= w.engine.maxCount {
		return rec.ID, nil
	}

	return prevSession, nil
}

func (w *walker) count(ctx context.Context, sessionID string) (int, error) {
	if n, ok := w.counts[sessionID]; ok {
		return n, nil
	}
	n, err := w.engine.store.CountSession(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("segment: count session %s: %w", sessionID, err)
	}
	w.counts[sessionID] = n
	return n, nil
}

// reload replaces rec's session with the stored one after a lost conditional write.
func (w *walker) reload(ctx context.Context, rec *traffic.Record) error {
	stored, err := w.engine.store.GetRecord(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("segment: reload %s: %w", rec.ID, err)
	}
	rec.Session = stored.Session
	if id, ok := stored.Session.Get(); ok {
		delete(w.counts, id)
	}

	w.engine.logger.WarnContext(ctx, "record was assigned concurrently",
		logger.Component("segment"),
		logger.ClientID(rec.ClientID),
		logger.RecordID(rec.ID),
		logger.SessionID(rec.Session.String()))
	return nil
}
