// Package traffictest provides store doubles for tests of packages built on traffic.Store.
package traffictest

import (
	"context"
	"time"

	"github.com/dmitrymomot/sessionguard/core/traffic"
)

// Unavailable is a traffic.Store whose every call fails with traffic.ErrStoreUnavailable.
type Unavailable struct{}

var _ traffic.Store = Unavailable{}

func (Unavailable) EnsureClient(context.Context, string) error {
	return traffic.ErrStoreUnavailable
}

func (Unavailable) GetClient(context.Context, string) (*traffic.ClientEntry, error) {
	return nil, traffic.ErrStoreUnavailable
}

func (Unavailable) SetBlacklisted(context.Context, string, time.Time) error {
	return traffic.ErrStoreUnavailable
}

func (Unavailable) ClearBlacklist(context.Context, string, time.Time) (bool, error) {
	return false, traffic.ErrStoreUnavailable
}

func (Unavailable) InsertRecord(context.Context, *traffic.Record) (string, error) {
	return "", traffic.ErrStoreUnavailable
}

func (Unavailable) GetRecord(context.Context, string) (*traffic.Record, error) {
	return nil, traffic.ErrStoreUnavailable
}

func (Unavailable) RecentRecords(context.Context, string, time.Time) ([]traffic.Record, error) {
	return nil, traffic.ErrStoreUnavailable
}

func (Unavailable) AssignSession(context.Context, string, string) (bool, error) {
	return false, traffic.ErrStoreUnavailable
}

func (Unavailable) CountSession(context.Context, string) (int, error) {
	return 0, traffic.ErrStoreUnavailable
}

func (Unavailable) PreviousRecord(context.Context, string, time.Time, string) (*traffic.Record, error) {
	return nil, traffic.ErrStoreUnavailable
}
