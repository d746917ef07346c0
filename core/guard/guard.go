package guard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/sessionguard/core/completion"
	"github.com/dmitrymomot/sessionguard/core/dispatch"
	"github.com/dmitrymomot/sessionguard/core/lease"
	"github.com/dmitrymomot/sessionguard/core/logger"
	"github.com/dmitrymomot/sessionguard/core/recorder"
	"github.com/dmitrymomot/sessionguard/core/reputation"
	"github.com/dmitrymomot/sessionguard/core/segment"
	"github.com/dmitrymomot/sessionguard/core/traffic"
	"github.com/dmitrymomot/sessionguard/pkg/classifier"
	"github.com/dmitrymomot/sessionguard/pkg/clientip"
)

// Decision is the outcome of OnRequestStart.
type Decision struct {
	ClientID   string
	Blocked    bool
	StatusCode int
}

// Guard is the request pipeline: gate on request start, then record,
// segment and detect completed sessions after the response is sent.
type Guard struct {
	cfg     Config
	enabled bool
	err     error

	identify   func(*http.Request) string
	gate       *reputation.Gate
	recorder   *recorder.Recorder
	engine     *segment.Engine
	detector   *completion.Detector
	dispatcher *dispatch.Dispatcher
	ownsPool   bool

	now    func() time.Time
	logger *slog.Logger
}

// New assembles the pipeline over store. When the configuration is invalid
// the pipeline is built disabled: every entry point passes through and Err
// returns the cause.
func New(cfg Config, store traffic.Store, opts ...Option) *Guard {
	o := &options{
		logger: logger.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	g := &Guard{
		cfg:    cfg,
		now:    o.now,
		logger: o.logger,
	}

	if err := g.build(store, o); err != nil {
		g.err = err
		g.logger.Error("session guard disabled, requests pass through",
			logger.Component("guard"),
			logger.Error(err))
		return g
	}

	g.enabled = true
	return g
}

func (g *Guard) build(store traffic.Store, o *options) error {
	if store == nil {
		return ErrStoreRequired
	}
	if err := g.cfg.Validate(); err != nil {
		return err
	}

	ipOpts := o.ipOptions
	if g.cfg.CustomIPHeader != "" {
		ipOpts = append([]clientip.Option{clientip.WithCustomHeader(g.cfg.CustomIPHeader)}, ipOpts...)
	}
	g.identify = clientip.New(ipOpts...)

	g.gate = reputation.New(store,
		reputation.WithLogger(g.logger),
		reputation.WithClock(g.now))
	g.recorder = recorder.New(store, recorder.WithLogger(g.logger))

	if g.cfg.GroupToSessions {
		locker := o.locker
		if locker == nil && o.strategy == nil {
			locker = lease.NewKeyed(g.cfg.LockWait)
		}
		segOpts := []segment.Option{
			segment.WithLookback(g.cfg.Lookback),
			segment.WithLogger(g.logger),
			segment.WithClock(g.now),
		}
		if o.strategy != nil {
			segOpts = append(segOpts, segment.WithStrategy(o.strategy))
		}
		engine, err := segment.New(store, locker, g.cfg.SessionGap, g.cfg.MaxRequestsPerSession, segOpts...)
		if err != nil {
			return errors.Join(ErrInvalidConfig, err)
		}
		g.engine = engine

		notifier := o.notifier
		if notifier == nil && g.cfg.Classifier.Enabled {
			n, err := classifier.NewHTTP(g.cfg.Classifier.HTTPConfig, classifier.WithLogger(g.logger))
			if err != nil {
				return errors.Join(ErrInvalidConfig, err)
			}
			notifier = n
		}
		if notifier != nil {
			g.detector = completion.New(store, notifier,
				completion.WithLogger(g.logger),
				completion.WithClock(g.now))
		}
	}

	g.dispatcher = o.dispatcher
	if g.dispatcher == nil {
		g.dispatcher = dispatch.New(g.cfg.Dispatch, dispatch.WithLogger(g.logger))
		g.ownsPool = true
	}
	return nil
}

// Enabled reports whether the pipeline is active.
func (g *Guard) Enabled() bool {
	return g.enabled
}

// Err returns why the pipeline is disabled, nil when enabled.
func (g *Guard) Err() error {
	return g.err
}

// Config returns the configuration the guard was built with.
func (g *Guard) Config() Config {
	return g.cfg
}

// Dispatcher returns the pool continuations run on, nil when disabled.
func (g *Guard) Dispatcher() *dispatch.Dispatcher {
	return g.dispatcher
}

// ClientID returns the identity the pipeline assigns to r.
func (g *Guard) ClientID(r *http.Request) string {
	if !g.enabled {
		return clientip.GetIP(r)
	}
	return g.identify(r)
}

// OnRequestStart records the client sighting and decides whether the request
// may proceed. A blocked request must be answered with Decision.StatusCode and
// nothing else of the pipeline runs for it.
func (g *Guard) OnRequestStart(r *http.Request) Decision {
	if !g.enabled {
		return Decision{}
	}

	ctx := r.Context()
	id := g.identify(r)

	g.gate.RecordSighting(ctx, id)
	if g.gate.CheckAndGate(ctx, id, g.cfg.BlockDuration) == reputation.Block {
		return Decision{ClientID: id, Blocked: true, StatusCode: reputation.StatusCode}
	}
	return Decision{ClientID: id}
}

// OnResponseComplete snapshots the request and hands the record, segment and
// notify continuation to the dispatcher. It never blocks on the store.
func (g *Guard) OnResponseComplete(r *http.Request, resp recorder.ResponseMeta) {
	if !g.enabled {
		return
	}
	if resp.CompletedAt.IsZero() {
		resp.CompletedAt = g.now()
	}

	req := recorder.NewRequestMeta(r, g.identify(r))
	if !g.dispatcher.Submit(func(ctx context.Context) error {
		return g.continuation(ctx, req, resp)
	}) {
		g.logger.WarnContext(r.Context(), "traffic record skipped",
			logger.Component("guard"),
			logger.ClientID(req.ClientID),
			logger.Method(req.Method),
			logger.Path(req.URL))
	}
}

func (g *Guard) continuation(ctx context.Context, req recorder.RequestMeta, resp recorder.ResponseMeta) error {
	if g.engine == nil || g.engine.CustomStrategy() {
		return g.recordThenStrategy(ctx, req, resp)
	}

	// The record is stamped and inserted under the client's lease so that
	// records of one client are stored in the order they are segmented.
	inserted := false
	_, assignments, err := g.engine.Append(ctx, req.ClientID, resp.CompletedAt,
		func(ctx context.Context, at time.Time) (string, bool) {
			inserted = true
			resp.CompletedAt = at
			ref, ok := g.recorder.Record(ctx, req, resp)
			return ref.ID, ok
		})

	if g.detector != nil {
		for _, a := range assignments {
			g.detector.OnRecorded(ctx, a.RecordID)
		}
	}

	if err != nil && !inserted {
		// No lease: store the record unsegmented for the client's next run.
		if ref, ok := g.recorder.Record(ctx, req, resp); ok {
			g.logger.InfoContext(ctx, "segmentation deferred to the next request",
				logger.Component("guard"),
				logger.ClientID(ref.ClientID),
				logger.RecordID(ref.ID),
				logger.Error(err))
		}
	}
	if errors.Is(err, lease.ErrLockTimeout) {
		return nil
	}
	return err
}

func (g *Guard) recordThenStrategy(ctx context.Context, req recorder.RequestMeta, resp recorder.ResponseMeta) error {
	ref, ok := g.recorder.Record(ctx, req, resp)
	if !ok || g.engine == nil {
		return nil
	}

	_, err := g.engine.Segment(ctx, segment.Input{
		ClientID: ref.ClientID,
		RecordID: ref.ID,
		Request:  req,
		Response: resp,
	})
	if err == nil && g.detector != nil {
		g.detector.OnRecorded(ctx, ref.ID)
	}
	return err
}

// Handler returns net/http middleware running the pipeline around next.
func (g *Guard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.enabled {
			next.ServeHTTP(w, r)
			return
		}

		if d := g.OnRequestStart(r); d.Blocked {
			w.WriteHeader(d.StatusCode)
			return
		}

		rw := NewResponseWriter(w)
		next.ServeHTTP(rw, r)
		rw.Flush()

		g.OnResponseComplete(r, rw.Meta(g.now()))
	})
}

// Blacklist flags clientID for the configured block duration.
func (g *Guard) Blacklist(ctx context.Context, clientID string) error {
	if !g.enabled {
		return ErrDisabled
	}
	return g.gate.Blacklist(ctx, clientID)
}

// Unblock lifts the flag on clientID.
func (g *Guard) Unblock(ctx context.Context, clientID string) error {
	if !g.enabled {
		return ErrDisabled
	}
	return g.gate.Unblock(ctx, clientID)
}

// Status returns the reputation of clientID.
func (g *Guard) Status(ctx context.Context, clientID string) (reputation.Status, error) {
	if !g.enabled {
		return reputation.Status{}, ErrDisabled
	}
	return g.gate.Status(ctx, clientID, g.cfg.BlockDuration)
}

// Run provides errgroup compatibility. It runs the dispatcher when the guard
// owns it and drains it on shutdown.
func (g *Guard) Run(ctx context.Context) func() error {
	if !g.enabled || !g.ownsPool {
		return func() error {
			<-ctx.Done()
			return nil
		}
	}
	return g.dispatcher.Run(ctx)
}

// Stop drains the dispatcher the guard owns. Stopping a dispatcher that never
// started is not an error.
func (g *Guard) Stop() error {
	if !g.enabled || !g.ownsPool {
		return nil
	}
	if err := g.dispatcher.Stop(); err != nil && !errors.Is(err, dispatch.ErrNotStarted) {
		return err
	}
	return nil
}
