package classifier

import (
	"context"
	"errors"
	"time"
)

// Notification announces a closed session to the classifier.
type Notification struct {
	SessionID string    `json:"sessionID"`
	ClientID  string    `json:"clientID,omitempty"`
	ClosedAt  time.Time `json:"closedAt"`
}

// Notifier delivers session-closed notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Noop discards every notification. Used when the classifier is disabled.
type Noop struct{}

func (Noop) Notify(context.Context, Notification) error {
	return nil
}

// Multi delivers each notification to every notifier in order.
type Multi []Notifier

// Notify calls every notifier even when some fail and returns their joined errors.
func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
