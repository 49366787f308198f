// Package scheduler polls subscribed feeds and pushes new matching items
// to their owners. Users are statically sharded across a fixed set of
// workers; each worker runs a drift-corrected fixed-interval cycle.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rssmon/internal/bot"
	"rssmon/internal/fetcher"
	"rssmon/internal/filter"
	"rssmon/internal/model"
	"rssmon/internal/storage"
)

// Sender delivers one outbound notification.
type Sender interface {
	SendNotification(chatID int64, text string, muted bool)
}

// Options sizes the scheduler at construction time.
type Options struct {
	NumWorkers      int
	RefreshInterval time.Duration
	MaxRecentItems  int
}

// Scheduler owns the polling shard workers.
type Scheduler struct {
	store   storage.Storage
	fetcher *fetcher.Fetcher
	sender  Sender
	log     *slog.Logger

	shards     int
	interval   time.Duration
	maxRecents int

	now func() time.Time
}

// New creates a Scheduler.
func New(store storage.Storage, f *fetcher.Fetcher, sender Sender, opts Options, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:      store,
		fetcher:    f,
		sender:     sender,
		log:        log,
		shards:     opts.NumWorkers,
		interval:   opts.RefreshInterval,
		maxRecents: opts.MaxRecentItems,
		now:        time.Now,
	}
}

// Start launches one goroutine per shard. They run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for i := 0; i < s.shards; i++ {
		go s.runShard(ctx, i)
	}
}

// runShard anchors each cycle to its start time: steady per-cycle duration
// does not accumulate drift, and an overloaded shard degrades to
// back-to-back cycles instead of catch-up bursts.
func (s *Scheduler) runShard(ctx context.Context, shard int) {
	for {
		cycleStart := s.now()
		s.runCycle(ctx, shard)

		if ctx.Err() != nil {
			return
		}

		wait, overran := s.nextWait(cycleStart)
		if overran {
			s.log.Warn("cycle overran refresh interval",
				"shard", shard, "late_by", -wait)
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// nextWait reports how long the shard must sleep so the next cycle starts at
// cycleStart + interval, regardless of how long the pass itself took. A
// non-positive remainder means the cycle overran and the next one starts
// immediately.
func (s *Scheduler) nextWait(cycleStart time.Time) (time.Duration, bool) {
	next := cycleStart.Add(s.interval)
	wait := next.Sub(s.now())
	return wait, wait <= 0
}

func (s *Scheduler) runCycle(ctx context.Context, shard int) {
	users, err := s.store.ListSubscribedUsers(ctx)
	if err != nil {
		s.log.Error("enumerate users", "shard", shard, "error", err)
		return
	}

	for _, userID := range users {
		if ctx.Err() != nil {
			return
		}
		if userID%int64(s.shards) != int64(shard) {
			continue
		}
		// One bad user must not block the rest of the shard.
		if err := s.pollUser(ctx, userID); err != nil {
			s.log.Error("poll user", "shard", shard, "user_id", userID, "error", err)
		}
	}
}

func (s *Scheduler) pollUser(ctx context.Context, userID int64) error {
	mute, err := s.store.LoadMuteState(ctx, userID)
	if err != nil {
		return fmt.Errorf("load mute state: %w", err)
	}
	if mute.Stopped {
		return nil
	}

	auth, err := s.store.LoadAuth(ctx, userID)
	if err != nil {
		return fmt.Errorf("load auth state: %w", err)
	}
	if auth == nil || !auth.AuthValid || auth.ChatID == 0 {
		return nil
	}

	subs, err := s.store.LoadSubscriptions(ctx, userID)
	if err != nil {
		return fmt.Errorf("load subscriptions: %w", err)
	}
	if len(subs.Entries) == 0 {
		return nil
	}

	fstate, err := s.store.LoadFeedState(ctx, userID)
	if err != nil {
		return fmt.Errorf("load feed state: %w", err)
	}

	// Fan out over all of the user's feeds and wait for every fetch.
	// A hung fetch delays this user only; failures are logged and the
	// feed is skipped until the next cycle.
	results := make([]*fetcher.Feed, len(subs.Entries))
	var wg sync.WaitGroup
	for i, sub := range subs.Entries {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			feed, ferr := s.fetcher.Fetch(ctx, url)
			if ferr != nil {
				s.log.Warn("fetch feed", "user_id", userID, "url", url, "error", ferr)
				return
			}
			results[i] = feed
		}(i, sub.URL)
	}
	wg.Wait()

	changed := false
	for i, sub := range subs.Entries {
		if results[i] == nil {
			continue
		}
		if s.processFeed(auth.ChatID, sub, results[i], fstate, mute) {
			changed = true
		}
	}

	// Persist once per user per cycle to bound store-write volume.
	if changed {
		if err := s.store.SaveFeedState(ctx, userID, fstate); err != nil {
			return fmt.Errorf("save feed state: %w", err)
		}
	}
	return nil
}

func (s *Scheduler) processFeed(chatID int64, sub model.Subscription, feed *fetcher.Feed, fstate *model.FeedState, mute *model.MuteState) bool {
	wm, hasWM := fstate.Watermarks[sub.URL]
	if hasWM && !wm.IsZero() && wm.Equal(feed.LastBuildDate) {
		// Feed unchanged since the last pass.
		return false
	}

	fstate.SetWatermark(sub.URL, feed.LastBuildDate)

	for _, item := range feed.Items {
		if hasWM && !wm.IsZero() && !item.PubDate.After(wm) {
			continue
		}
		id := fetcher.ItemID(item)
		if fstate.IsRecent(id) {
			continue
		}
		if !filter.MatchKeywords(item.Title, item.Description, sub.Keywords) {
			continue
		}

		fstate.AddRecent(id, s.maxRecents)
		// The mute decision is taken at send time, not at match time.
		muted := mute.IsMutedAt(s.now())
		s.sender.SendNotification(chatID, bot.FormatNotification(feed.Title, item), muted)
	}
	return true
}
