package guard

import "errors"

var (
	ErrInvalidConfig           = errors.New("guard: invalid configuration")
	ErrClassifierNeedsSessions = errors.New("guard: classifier requires session grouping")
	ErrStoreRequired           = errors.New("guard: store is required")
	ErrDisabled                = errors.New("guard: pipeline is disabled")
)
