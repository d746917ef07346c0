package classifier

import "errors"

var (
	ErrNotificationFailed = errors.New("classifier: notification failed")
	ErrInvalidEndpoint    = errors.New("classifier: invalid endpoint")
	ErrEmptySessionID     = errors.New("classifier: empty session id")
)
