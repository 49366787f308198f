// Package storage defines the persistent keyed store and its implementations.
//
// Records are stored per (user, kind) and written last-writer-wins. The
// command path and the scheduler path touch disjoint kinds for the same
// user except for FeedState, which only the scheduler and /add write.
package storage

import (
	"context"

	"rssmon/internal/model"
)

// Record kinds. Each kind is serialized independently.
const (
	KindAuthState     = "auth_state"
	KindSubscriptions = "subscriptions"
	KindMuteState     = "mute_state"
	KindFeedState     = "feed_state"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	// LoadAuth returns nil without error when the user has no auth record.
	LoadAuth(ctx context.Context, userID int64) (*model.AuthState, error)
	SaveAuth(ctx context.Context, userID int64, s *model.AuthState) error

	// The remaining loaders return a zero-value record when none is stored.
	LoadSubscriptions(ctx context.Context, userID int64) (*model.SubscriptionList, error)
	SaveSubscriptions(ctx context.Context, userID int64, l *model.SubscriptionList) error

	LoadMuteState(ctx context.Context, userID int64) (*model.MuteState, error)
	SaveMuteState(ctx context.Context, userID int64, m *model.MuteState) error

	LoadFeedState(ctx context.Context, userID int64) (*model.FeedState, error)
	SaveFeedState(ctx context.Context, userID int64, f *model.FeedState) error

	// ListSubscribedUsers enumerates every user holding a subscription record.
	ListSubscribedUsers(ctx context.Context) ([]int64, error)

	Close() error
}
