package traffic

import "time"

// ClientEntry is the reputation state kept for a client identity.
// BlacklistedAt marks the start of the current penalty window and is only
// meaningful while Blacklisted is true.
type ClientEntry struct {
	ClientID      string
	Blacklisted   bool
	BlacklistedAt time.Time
	CreatedAt     time.Time
}

// PenaltyRemaining returns how much of the penalty window is left at now.
// Returns zero for clients that are not blacklisted or whose window elapsed.
func (e ClientEntry) PenaltyRemaining(now time.Time, blockDuration time.Duration) time.Duration {
	if !e.Blacklisted {
		return 0
	}
	return max(0, blockDuration-now.Sub(e.BlacklistedAt))
}
