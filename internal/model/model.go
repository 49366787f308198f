// Package model defines the per-user state records used across the application.
package model

import "time"

// Subscription is a single feed subscription with optional keyword filters.
// An empty keyword set matches every item.
type Subscription struct {
	URL      string   `json:"url"`
	Keywords []string `json:"keywords,omitempty"`
}

// SubscriptionList holds a user's subscriptions in insertion order.
// Indices shown to the user are positions in Entries and shift on deletion.
type SubscriptionList struct {
	Entries []Subscription `json:"entries,omitempty"`
}

// Contains reports whether the list already has a subscription with exactly
// the given URL.
func (l *SubscriptionList) Contains(url string) bool {
	for _, e := range l.Entries {
		if e.URL == url {
			return true
		}
	}
	return false
}

// AuthState marks a user as authenticated and remembers where to reach them.
type AuthState struct {
	AuthValid bool  `json:"auth_valid"`
	ChatID    int64 `json:"chat_id"`
}

// MuteState controls notification delivery for a user.
// Stopped suppresses polling entirely; Muted only silences the alert.
type MuteState struct {
	Muted   bool `json:"muted"`
	Stopped bool `json:"stopped"`

	// Quiet hours as seconds-of-day bounds. Both zero means disabled.
	// From > To is stored and checked literally, not as a wraparound range.
	DaySecondsFrom int `json:"day_seconds_from"`
	DaySecondsTo   int `json:"day_seconds_to"`
}

// SetHours sets the quiet-hours window from whole hours of the day.
func (m *MuteState) SetHours(from, to int) {
	m.DaySecondsFrom = from * 3600
	m.DaySecondsTo = to * 3600
}

// IsMutedAt reports whether an alert sent at t should be silent.
// The quiet-hours window [From, To] is inclusive on both ends.
func (m *MuteState) IsMutedAt(t time.Time) bool {
	if m.Muted {
		return true
	}
	if m.DaySecondsFrom == 0 && m.DaySecondsTo == 0 {
		return false
	}
	sec := t.Hour()*3600 + t.Minute()*60 + t.Second()
	return sec < m.DaySecondsFrom || sec > m.DaySecondsTo
}

// FeedState carries everything the poller persists per user: the last-seen
// build date per feed URL and a bounded FIFO of recently notified item
// identifiers.
type FeedState struct {
	Watermarks  map[string]time.Time `json:"watermarks,omitempty"`
	RecentItems []string             `json:"recent_items,omitempty"`
}

// SetWatermark records the feed-level build date for a URL.
func (f *FeedState) SetWatermark(url string, t time.Time) {
	if f.Watermarks == nil {
		f.Watermarks = make(map[string]time.Time)
	}
	f.Watermarks[url] = t
}

// AddRecent appends an item identifier, evicting the oldest entries when the
// cache is at capacity.
func (f *FeedState) AddRecent(id string, capacity int) {
	if capacity <= 0 {
		return
	}
	if len(f.RecentItems) >= capacity {
		f.RecentItems = f.RecentItems[len(f.RecentItems)-capacity+1:]
	}
	f.RecentItems = append(f.RecentItems, id)
}

// IsRecent reports whether an item identifier is in the cache.
func (f *FeedState) IsRecent(id string) bool {
	for _, r := range f.RecentItems {
		if r == id {
			return true
		}
	}
	return false
}
