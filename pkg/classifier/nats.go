package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is the NATS subject closed sessions are published to.
const DefaultSubject = "sessionguard.session.closed"

// NATS publishes JSON-encoded notifications to a NATS subject.
type NATS struct {
	conn    *nats.Conn
	subject string
	owned   bool
}

// NewNATS connects to url and publishes to subject (DefaultSubject when empty).
// Extra nats.Option values are appended to the reconnect defaults.
func NewNATS(url, subject string, opts ...nats.Option) (*NATS, error) {
	defaults := []nats.Option{
		nats.Name("sessionguard"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	n := NewNATSFromConn(nc, subject)
	n.owned = true
	return n, nil
}

// NewNATSFromConn publishes over an existing connection. Close leaves it open.
func NewNATSFromConn(nc *nats.Conn, subject string) *NATS {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATS{conn: nc, subject: subject}
}

func (p *NATS) Notify(ctx context.Context, n Notification) error {
	if n.SessionID == "" {
		return ErrEmptySessionID
	}
	data, err := json.Marshal(n)
	if err != nil {
		return errors.Join(ErrNotificationFailed, fmt.Errorf("marshaling notification: %w", err))
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return errors.Join(ErrNotificationFailed, err)
	}
	return nil
}

// Close closes the connection when the notifier opened it.
func (p *NATS) Close() error {
	if p.owned {
		p.conn.Close()
	}
	return nil
}
