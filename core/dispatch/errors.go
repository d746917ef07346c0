package dispatch

import "errors"

var (
	ErrAlreadyStarted    = errors.New("dispatch: already started")
	ErrNotStarted        = errors.New("dispatch: not started")
	ErrStopped           = errors.New("dispatch: stopped")
	ErrShutdownTimeout   = errors.New("dispatch: shutdown timeout exceeded")
	ErrTaskPanic         = errors.New("dispatch: task panicked")
	ErrHealthcheckFailed = errors.New("dispatch: healthcheck failed")
	ErrOverloaded        = errors.New("dispatch: queue is full")
)
