package reputation

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/sessionguard/core/logger"
	"github.com/dmitrymomot/sessionguard/core/traffic"
)

// Decision is the outcome of a gate check.
type Decision int

const (
	Admit Decision = iota
	Block
)

// String returns "admit" or "block".
func (d Decision) String() string {
	if d == Block {
		return "block"
	}
	return "admit"
}

// StatusCode is the HTTP status a blocked request must terminate with.
const StatusCode = http.StatusForbidden

// Status describes the reputation of a client at a point in time.
type Status struct {
	Entry     *traffic.ClientEntry
	Remaining time.Duration
}

// Gate admits or blocks requests based on persisted blacklist state.
// It holds no per-client state; every decision is read from the store.
type Gate struct {
	store  traffic.ClientStore
	now    func() time.Time
	logger *slog.Logger
}

// New creates a gate backed by the given store.
func New(store traffic.ClientStore, opts ...Option) *Gate {
	if store == nil {
		panic("reputation: store is required")
	}

	g := &Gate{
		store:  store,
		now:    time.Now,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RecordSighting makes sure clientID has an entry. Store errors are logged.
func (g *Gate) RecordSighting(ctx context.Context, clientID string) {
	if err := g.store.EnsureClient(ctx, clientID); err != nil {
		g.logger.ErrorContext(ctx, "failed to record client sighting",
			logger.Component("reputation"),
			logger.ClientID(clientID),
			logger.Error(err))
	}
}

// CheckAndGate decides whether a request from clientID may proceed.
// A blacklisted client is blocked until blockDuration has elapsed since it was
// flagged; the first check after that clears the flag and admits.
// Store failures admit the request.
func (g *Gate) CheckAndGate(ctx context.Context, clientID string, blockDuration time.Duration) Decision {
	entry, err := g.store.GetClient(ctx, clientID)
	if err != nil {
		if !errors.Is(err, traffic.ErrNotFound) {
			g.logger.ErrorContext(ctx, "reputation lookup failed, admitting",
				logger.Component("reputation"),
				logger.ClientID(clientID),
				logger.Error(err))
		}
		return Admit
	}

	if !entry.Blacklisted {
		return Admit
	}

	if g.now().Sub(entry.BlacklistedAt) < blockDuration {
		g.logger.DebugContext(ctx, "blocked blacklisted client",
			logger.Component("reputation"),
			logger.ClientID(clientID),
			logger.Decision(Block.String()))
		return Block
	}

	cleared, err := g.store.ClearBlacklist(ctx, clientID, entry.BlacklistedAt)
	if err != nil {
		g.logger.ErrorContext(ctx, "failed to clear expired blacklist, admitting",
			logger.Component("reputation"),
			logger.ClientID(clientID),
			logger.Error(err))
		return Admit
	}
	if cleared {
		g.logger.InfoContext(ctx, "blacklist window elapsed",
			logger.Component("reputation"),
			logger.ClientID(clientID),
			logger.Event("unblocked"))
	}

	return Admit
}

// Blacklist flags clientID, starting a new penalty window now.
func (g *Gate) Blacklist(ctx context.Context, clientID string) error {
	if err := g.store.SetBlacklisted(ctx, clientID, g.now()); err != nil {
		return errors.Join(ErrTrustDecision, err)
	}
	g.logger.InfoContext(ctx, "client blacklisted",
		logger.Component("reputation"),
		logger.ClientID(clientID),
		logger.Event("blacklisted"))
	return nil
}

// Unblock clears the flag of clientID regardless of the remaining window.
// Returns ErrNotBlacklisted when the client is not flagged.
func (g *Gate) Unblock(ctx context.Context, clientID string) error {
	entry, err := g.store.GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, traffic.ErrNotFound) {
			return ErrNotBlacklisted
		}
		return errors.Join(ErrTrustDecision, err)
	}
	if !entry.Blacklisted {
		return ErrNotBlacklisted
	}

	if _, err := g.store.ClearBlacklist(ctx, clientID, entry.BlacklistedAt); err != nil {
		return errors.Join(ErrTrustDecision, err)
	}
	g.logger.InfoContext(ctx, "client unblocked by operator",
		logger.Component("reputation"),
		logger.ClientID(clientID),
		logger.Event("unblocked"))
	return nil
}

// Status returns the entry for clientID and the penalty left under blockDuration.
func (g *Gate) Status(ctx context.Context, clientID string, blockDuration time.Duration) (Status, error) {
	entry, err := g.store.GetClient(ctx, clientID)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Entry:     entry,
		Remaining: entry.PenaltyRemaining(g.now(), blockDuration),
	}, nil
}
