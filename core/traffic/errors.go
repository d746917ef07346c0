package traffic

import "errors"

var (
	ErrNotFound         = errors.New("traffic: not found")
	ErrStoreUnavailable = errors.New("traffic: store unavailable")
	ErrInvalidRecord    = errors.New("traffic: invalid record")
)
