package bot

import (
	"context"
	"fmt"
	"strings"

	"rssmon/internal/model"
)

func (b *Bot) handleUnauthenticated(ctx context.Context, userID, chatID int64, name string, tokens []string) error {
	switch {
	case tokens[0] == "/auth" && len(tokens) == 2 && tokens[1] == b.cfg.BotSecret:
		if err := b.store.SaveAuth(ctx, userID, &model.AuthState{AuthValid: true, ChatID: chatID}); err != nil {
			return fmt.Errorf("save auth state: %w", err)
		}
		b.reply(chatID, fmt.Sprintf("%s, you are now authenticated", name))

	case tokens[0] == "/start":
		mute, err := b.store.LoadMuteState(ctx, userID)
		if err != nil {
			return fmt.Errorf("load mute state: %w", err)
		}
		mute.Stopped = true
		if err := b.store.SaveMuteState(ctx, userID, mute); err != nil {
			return fmt.Errorf("save mute state: %w", err)
		}
		b.reply(chatID, fmt.Sprintf("Hello %s! I watch RSS feeds and notify you about new items. Send /auth <secret> to unlock me.", name))

	default:
		b.reply(chatID, fmt.Sprintf("%s, access denied", name))
	}
	return nil
}

func (b *Bot) handleAuthenticated(ctx context.Context, userID, chatID int64, name string, tokens []string) error {
	switch tokens[0] {
	case "/help":
		b.reply(chatID, helpText(name))
		return nil
	case "/add":
		return b.handleAdd(ctx, userID, chatID, name, tokens)
	case "/list":
		return b.handleList(ctx, userID, chatID, name)
	case "/del":
		return b.handleDel(ctx, userID, chatID, name, tokens)
	case "/words":
		return b.handleWords(ctx, userID, chatID, name, tokens)
	case "/mute":
		return b.setMuted(ctx, userID, chatID, name, true)
	case "/unmute":
		return b.setMuted(ctx, userID, chatID, name, false)
	case "/hours":
		return b.handleHours(ctx, userID, chatID, name, tokens)
	case "/stop":
		return b.handleStop(ctx, userID, chatID, name)
	default:
		b.reply(chatID, fmt.Sprintf("Hello %s, I cannot understand %s, try asking for /help", name, tokens[0]))
		return nil
	}
}

// unStop wakes a stopped user. Any edit to their state counts as a request
// to resume polling.
func (b *Bot) unStop(ctx context.Context, userID int64) error {
	mute, err := b.store.LoadMuteState(ctx, userID)
	if err != nil {
		return fmt.Errorf("load mute state: %w", err)
	}
	if !mute.Stopped {
		return nil
	}
	mute.Stopped = false
	if err := b.store.SaveMuteState(ctx, userID, mute); err != nil {
		return fmt.Errorf("save mute state: %w", err)
	}
	return nil
}

func (b *Bot) handleAdd(ctx context.Context, userID, chatID int64, name string, tokens []string) error {
	if err := b.unStop(ctx, userID); err != nil {
		return err
	}

	if len(tokens) < 2 {
		b.reply(chatID, fmt.Sprintf("%s, please give arguments to the command", name))
		return nil
	}
	url := tokens[1]

	subs, err := b.store.LoadSubscriptions(ctx, userID)
	if err != nil {
		return fmt.Errorf("load subscriptions: %w", err)
	}
	if subs.Contains(url) {
		b.reply(chatID, fmt.Sprintf("%s, you are already subscribed to %s", name, url))
		return nil
	}

	// Validate with a live fetch before accepting. Add latency is one
	// network round trip; a feed we cannot parse now is refused, not
	// queued for later validation.
	feed, ferr := b.fetcher.Fetch(ctx, url)
	if ferr != nil {
		b.log.Warn("add validation fetch failed", "user_id", userID, "url", url, "error", ferr)
		b.reply(chatID, fmt.Sprintf("%s, that's not looking like a valid RSS feed", name))
		return nil
	}

	subs.Entries = append(subs.Entries, model.Subscription{
		URL:      url,
		Keywords: append([]string(nil), tokens[2:]...),
	})
	if err := b.store.SaveSubscriptions(ctx, userID, subs); err != nil {
		return fmt.Errorf("save subscriptions: %w", err)
	}

	fstate, err := b.store.LoadFeedState(ctx, userID)
	if err != nil {
		return fmt.Errorf("load feed state: %w", err)
	}
	fstate.SetWatermark(url, feed.LastBuildDate)
	if err := b.store.SaveFeedState(ctx, userID, fstate); err != nil {
		return fmt.Errorf("save feed state: %w", err)
	}

	b.reply(chatID, fmt.Sprintf("%s, it was added", name))
	return nil
}

func (b *Bot) handleList(ctx context.Context, userID, chatID int64, name string) error {
	if err := b.unStop(ctx, userID); err != nil {
		return err
	}

	subs, err := b.store.LoadSubscriptions(ctx, userID)
	if err != nil {
		return fmt.Errorf("load subscriptions: %w", err)
	}
	b.reply(chatID, FormatSubscriptionList(name, subs))
	return nil
}

func (b *Bot) handleDel(ctx context.Context, userID, chatID int64, name string, tokens []string) error {
	if err := b.unStop(ctx, userID); err != nil {
		return err
	}

	if len(tokens) < 2 {
		b.reply(chatID, fmt.Sprintf("%s, please give arguments to the command", name))
		return nil
	}

	subs, err := b.store.LoadSubscriptions(ctx, userID)
	if err != nil {
		return fmt.Errorf("load subscriptions: %w", err)
	}

	idx, ok := parseIndex(tokens[1], len(subs.Entries))
	if !ok {
		b.reply(chatID, fmt.Sprintf("%s, index %s is not known", name, tokens[1]))
		return nil
	}

	subs.Entries = append(subs.Entries[:idx], subs.Entries[idx+1:]...)
	if err := b.store.SaveSubscriptions(ctx, userID, subs); err != nil {
		return fmt.Errorf("save subscriptions: %w", err)
	}

	b.reply(chatID, fmt.Sprintf("%s, %d was removed", name, idx))
	return nil
}

func (b *Bot) handleWords(ctx context.Context, userID, chatID int64, name string, tokens []string) error {
	if err := b.unStop(ctx, userID); err != nil {
		return err
	}

	if len(tokens) < 2 {
		b.reply(chatID, fmt.Sprintf("%s, please give arguments to the command", name))
		return nil
	}

	subs, err := b.store.LoadSubscriptions(ctx, userID)
	if err != nil {
		return fmt.Errorf("load subscriptions: %w", err)
	}

	var idxToken string
	switch tokens[1] {
	case "add", "del":
		if len(tokens) < 4 {
			b.reply(chatID, fmt.Sprintf("%s, please give arguments to the command", name))
			return nil
		}
		idxToken = tokens[2]
	default:
		idxToken = tokens[1]
	}

	idx, ok := parseIndex(idxToken, len(subs.Entries))
	if !ok {
		b.reply(chatID, fmt.Sprintf("%s, index %s is not known", name, idxToken))
		return nil
	}

	entry := &subs.Entries[idx]
	switch tokens[1] {
	case "add":
		entry.Keywords = append(entry.Keywords, tokens[3:]...)
	case "del":
		entry.Keywords = removeKeyword(entry.Keywords, tokens[3])
	default:
		entry.Keywords = append([]string(nil), tokens[2:]...)
	}

	if err := b.store.SaveSubscriptions(ctx, userID, subs); err != nil {
		return fmt.Errorf("save subscriptions: %w", err)
	}

	b.reply(chatID, fmt.Sprintf("%s, %d was updated", name, idx))
	return nil
}

func removeKeyword(keywords []string, word string) []string {
	var out []string
	for _, kw := range keywords {
		if !strings.EqualFold(kw, word) {
			out = append(out, kw)
		}
	}
	return out
}

func (b *Bot) setMuted(ctx context.Context, userID, chatID int64, name string, muted bool) error {
	mute, err := b.store.LoadMuteState(ctx, userID)
	if err != nil {
		return fmt.Errorf("load mute state: %w", err)
	}
	mute.Muted = muted
	if err := b.store.SaveMuteState(ctx, userID, mute); err != nil {
		return fmt.Errorf("save mute state: %w", err)
	}

	if muted {
		b.reply(chatID, fmt.Sprintf("%s, bot muted", name))
	} else {
		b.reply(chatID, fmt.Sprintf("%s, bot un-muted", name))
	}
	return nil
}

func (b *Bot) handleHours(ctx context.Context, userID, chatID int64, name string, tokens []string) error {
	if err := b.unStop(ctx, userID); err != nil {
		return err
	}

	if len(tokens) < 3 {
		b.reply(chatID, fmt.Sprintf("%s, please give arguments to the command", name))
		return nil
	}

	from, to, err := parseHours(tokens[1], tokens[2])
	if err != nil {
		b.reply(chatID, fmt.Sprintf("%s, hours must be whole numbers between 0 and 23", name))
		return nil
	}

	mute, err := b.store.LoadMuteState(ctx, userID)
	if err != nil {
		return fmt.Errorf("load mute state: %w", err)
	}
	// from > to is stored as given; the quiet-hours check applies the
	// bounds literally.
	mute.SetHours(from, to)
	if err := b.store.SaveMuteState(ctx, userID, mute); err != nil {
		return fmt.Errorf("save mute state: %w", err)
	}

	b.reply(chatID, fmt.Sprintf("%s, alerts stay on between %d:00 and %d:00 only", name, from, to))
	return nil
}

func (b *Bot) handleStop(ctx context.Context, userID, chatID int64, name string) error {
	mute, err := b.store.LoadMuteState(ctx, userID)
	if err != nil {
		return fmt.Errorf("load mute state: %w", err)
	}
	mute.Stopped = true
	if err := b.store.SaveMuteState(ctx, userID, mute); err != nil {
		return fmt.Errorf("save mute state: %w", err)
	}

	b.reply(chatID, fmt.Sprintf("%s, bot won't bother you", name))
	return nil
}
