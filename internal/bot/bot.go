// Package bot implements the command handler and the outbound send primitive.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rssmon/internal/config"
	"rssmon/internal/fetcher"
	"rssmon/internal/storage"
)

// API is the outbound half of the Telegram transport.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot routes parsed commands to state mutations against the store.
// One Handle call processes one inbound event; it may block on network
// calls (the /add validation fetch).
type Bot struct {
	api     API
	store   storage.Storage
	fetcher *fetcher.Fetcher
	cfg     *config.Config
	log     *slog.Logger
}

// New creates a Bot.
func New(api API, store storage.Storage, f *fetcher.Fetcher, cfg *config.Config, log *slog.Logger) *Bot {
	return &Bot{
		api:     api,
		store:   store,
		fetcher: f,
		cfg:     cfg,
		log:     log,
	}
}

// Handle processes one inbound update. User-input problems are answered
// with a reply; storage failures are returned and treated as fatal by the
// dispatcher worker.
func (b *Bot) Handle(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil
	}

	userID := msg.From.ID
	chatID := msg.Chat.ID
	name := msg.From.FirstName

	tokens := strings.Fields(msg.Text)
	if len(tokens) == 0 {
		return nil
	}

	b.log.Debug("command", "user_id", userID, "chat_id", chatID, "cmd", tokens[0])

	auth, err := b.store.LoadAuth(ctx, userID)
	if err != nil {
		return fmt.Errorf("load auth state: %w", err)
	}

	if auth != nil && auth.AuthValid {
		return b.handleAuthenticated(ctx, userID, chatID, name, tokens)
	}
	return b.handleUnauthenticated(ctx, userID, chatID, name, tokens)
}

// SendNotification delivers a link-formatted feed notification. The muted
// flag silences the client-side alert but the message is still delivered.
func (b *Bot) SendNotification(chatID int64, text string, muted bool) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableNotification = muted
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send notification", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send reply", "chat_id", chatID, "error", err)
	}
}
