package recorder

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/sessionguard/core/logger"
	"github.com/dmitrymomot/sessionguard/core/traffic"
)

// RecordRef identifies a persisted traffic record.
type RecordRef struct {
	ID        string
	ClientID  string
	Timestamp time.Time
}

// Recorder persists one traffic record per completed request.
type Recorder struct {
	store  traffic.RecordStore
	logger *slog.Logger
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger used for persistence failures.
func WithLogger(log *slog.Logger) Option {
	return func(r *Recorder) {
		if log != nil {
			r.logger = log
		}
	}
}

// New creates a recorder backed by store.
func New(store traffic.RecordStore, opts ...Option) *Recorder {
	if store == nil {
		panic("recorder: store is required")
	}

	r := &Recorder{
		store:  store,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Precision is the timestamp resolution every store keeps.
const Precision = time.Millisecond

// Record persists an unassigned record built from the request and response
// snapshots. Failures are logged and reported with ok=false; the caller
// proceeds without a record.
func (r *Recorder) Record(ctx context.Context, req RequestMeta, resp ResponseMeta) (RecordRef, bool) {
	rec := NewRecord(req, resp)

	id, err := r.store.InsertRecord(ctx, rec)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to persist traffic record",
			logger.Component("recorder"),
			logger.ClientID(req.ClientID),
			logger.Method(req.Method),
			logger.Path(req.URL),
			logger.Error(err))
		return RecordRef{}, false
	}

	return RecordRef{ID: id, ClientID: req.ClientID, Timestamp: rec.Timestamp}, true
}

// NewRecord builds the unassigned record for a request and its response,
// stamped at resp.CompletedAt truncated to Precision.
func NewRecord(req RequestMeta, resp ResponseMeta) *traffic.Record {
	ts := resp.CompletedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	return &traffic.Record{
		ClientID:     req.ClientID,
		Timestamp:    ts.Truncate(Precision),
		Method:       req.Method,
		URL:          req.URL,
		FullURL:      req.FullURL,
		StatusCode:   resp.StatusCode,
		RequestSize:  req.RequestSize,
		ResponseSize: resp.Size,
		ContentType:  contentType(resp, req.URL),
		UserAgent:    req.UserAgent,
		RequestLine:  req.RequestLine,
		Headers:      req.Headers,
		Session:      traffic.Unassigned(),
	}
}
