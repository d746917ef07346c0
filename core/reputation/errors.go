package reputation

import "errors"

var (
	ErrTrustDecision  = errors.New("reputation: failed to apply trust decision")
	ErrNotBlacklisted = errors.New("reputation: client is not blacklisted")
)
