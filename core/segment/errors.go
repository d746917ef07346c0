package segment

import "errors"

var (
	ErrStoreRequired    = errors.New("segment: store is required")
	ErrLockerRequired   = errors.New("segment: locker is required")
	ErrInvalidThreshold = errors.New("segment: thresholds must be positive")
	ErrStrategyFailed   = errors.New("segment: custom strategy failed")
	ErrLeaseExpired     = errors.New("segment: lease expired before the run finished")
)
