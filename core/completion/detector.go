package completion

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/sessionguard/core/logger"
	"github.com/dmitrymomot/sessionguard/core/traffic"
	"github.com/dmitrymomot/sessionguard/pkg/classifier"
)

// Detector notices session boundaries and announces the session that closed.
// A session is closed by the first record of the client's next session; a
// session still open is never announced.
type Detector struct {
	store    traffic.RecordStore
	notifier classifier.Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the detector logger.
func WithLogger(log *slog.Logger) Option {
	return func(d *Detector) {
		if log != nil {
			d.logger = log
		}
	}
}

// WithClock replaces time.Now for the ClosedAt fallback.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

// New creates a detector that reports through notifier.
func New(store traffic.RecordStore, notifier classifier.Notifier, opts ...Option) *Detector {
	if store == nil {
		panic("completion: store is required")
	}
	if notifier == nil {
		notifier = classifier.Noop{}
	}

	d := &Detector{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OnRecorded inspects the record with recordID after its session was
// assigned. When the record opened a session, the session of the client's
// preceding record is complete and exactly one notification is sent for it.
// Reports whether a notification was delivered. Failures are logged.
func (d *Detector) OnRecorded(ctx context.Context, recordID string) bool {
	rec, err := d.store.GetRecord(ctx, recordID)
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to load record for completion check",
			logger.Component("completion"),
			logger.RecordID(recordID),
			logger.Error(err))
		return false
	}

	if !rec.OpensSession() {
		return false
	}

	prev, err := d.store.PreviousRecord(ctx, rec.ClientID, rec.Timestamp, rec.ID)
	if err != nil {
		if !errors.Is(err, traffic.ErrNotFound) {
			d.logger.ErrorContext(ctx, "failed to load previous record",
				logger.Component("completion"),
				logger.ClientID(rec.ClientID),
				logger.RecordID(rec.ID),
				logger.Error(err))
		}
		return false
	}

	closed, ok := prev.Session.Get()
	if !ok {
		return false
	}

	closedAt := rec.Timestamp
	if closedAt.IsZero() {
		closedAt = d.now()
	}

	n := classifier.Notification{
		SessionID: closed,
		ClientID:  rec.ClientID,
		ClosedAt:  closedAt,
	}
	if err := d.notifier.Notify(ctx, n); err != nil {
		d.logger.WarnContext(ctx, "session completion notification dropped",
			logger.Component("completion"),
			logger.ClientID(rec.ClientID),
			logger.SessionID(closed),
			logger.Error(err))
		return false
	}

	d.logger.InfoContext(ctx, "session completed",
		logger.Component("completion"),
		logger.ClientID(rec.ClientID),
		logger.SessionID(closed),
		logger.Event("session_closed"))
	return true
}
