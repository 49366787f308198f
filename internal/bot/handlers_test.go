package bot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rssmon/internal/config"
	"rssmon/internal/fetcher"
	"rssmon/internal/model"
	"rssmon/internal/storage"
)

type mockAPI struct {
	sent []tgbotapi.MessageConfig
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.sent = append(m.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (m *mockAPI) lastText(t *testing.T) string {
	t.Helper()
	if len(m.sent) == 0 {
		t.Fatal("no message was sent")
	}
	return m.sent[len(m.sent)-1].Text
}

type fixtureHTTP struct {
	status int
	body   []byte
	err    error
}

func (f *fixtureHTTP) Do(*http.Request) (*http.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(bytes.NewReader(f.body)),
	}, nil
}

func rssFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("../../testdata/sample_rss.xml")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

func newTestBot(t *testing.T, client fetcher.HTTPClient) (*Bot, *mockAPI, storage.Storage) {
	t.Helper()

	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{BotSecret: "s3cret"}
	api := &mockAPI{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(api, store, fetcher.New(client), cfg, log), api, store
}

func msgFrom(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: userID, FirstName: "Alice"},
			Chat: &tgbotapi.Chat{ID: userID * 100},
			Text: text,
		},
	}
}

func handle(t *testing.T, b *Bot, userID int64, text string) {
	t.Helper()
	if err := b.Handle(context.Background(), msgFrom(userID, text)); err != nil {
		t.Fatalf("Handle(%q): %v", text, err)
	}
}

func TestHandleIgnoresNonMessages(t *testing.T) {
	b, api, _ := newTestBot(t, &fixtureHTTP{status: 200})

	if err := b.Handle(context.Background(), tgbotapi.Update{}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	handle(t, b, 1, "   ")

	if len(api.sent) != 0 {
		t.Fatalf("expected no replies, got %d", len(api.sent))
	}
}

func TestAuthFlow(t *testing.T) {
	b, api, store := newTestBot(t, &fixtureHTTP{status: 200})

	handle(t, b, 1, "/list")
	if got := api.lastText(t); got != "Alice, access denied" {
		t.Fatalf("unauthenticated reply = %q", got)
	}

	handle(t, b, 1, "/auth wrong")
	if got := api.lastText(t); got != "Alice, access denied" {
		t.Fatalf("wrong secret reply = %q", got)
	}

	handle(t, b, 1, "/auth s3cret")
	if got := api.lastText(t); got != "Alice, you are now authenticated" {
		t.Fatalf("auth reply = %q", got)
	}

	auth, err := store.LoadAuth(context.Background(), 1)
	if err != nil {
		t.Fatalf("LoadAuth: %v", err)
	}
	if auth == nil || !auth.AuthValid || auth.ChatID != 100 {
		t.Fatalf("auth state = %+v", auth)
	}
}

func TestAuthRequiresExactTokenCount(t *testing.T) {
	b, api, _ := newTestBot(t, &fixtureHTTP{status: 200})

	handle(t, b, 1, "/auth s3cret extra")
	if got := api.lastText(t); got != "Alice, access denied" {
		t.Fatalf("reply = %q", got)
	}
}

func TestStartBeforeAuthStopsUser(t *testing.T) {
	b, api, store := newTestBot(t, &fixtureHTTP{status: 200})

	handle(t, b, 1, "/start")
	if got := api.lastText(t); !strings.Contains(got, "Hello Alice") {
		t.Fatalf("greeting = %q", got)
	}

	mute, err := store.LoadMuteState(context.Background(), 1)
	if err != nil {
		t.Fatalf("LoadMuteState: %v", err)
	}
	if !mute.Stopped {
		t.Fatal("expected Stopped after /start")
	}
}

func TestAddListDel(t *testing.T) {
	b, api, store := newTestBot(t, &fixtureHTTP{status: 200, body: rssFixture(t)})
	ctx := context.Background()

	handle(t, b, 1, "/auth s3cret")

	handle(t, b, 1, "/add https://a.example/feed")
	if got := api.lastText(t); got != "Alice, it was added" {
		t.Fatalf("add reply = %q", got)
	}

	handle(t, b, 1, "/add https://a.example/feed")
	if got := api.lastText(t); got != "Alice, you are already subscribed to https://a.example/feed" {
		t.Fatalf("duplicate reply = %q", got)
	}

	handle(t, b, 1, "/add https://b.example/feed k8s release")
	handle(t, b, 1, "/list")
	list := api.lastText(t)
	if !strings.Contains(list, "0: https://a.example/feed") ||
		!strings.Contains(list, "1: https://b.example/feed k8s release") {
		t.Fatalf("list = %q", list)
	}

	// The /add validation fetch also seeds the watermark so old items are
	// not replayed on the first polling cycle.
	fstate, err := store.LoadFeedState(ctx, 1)
	if err != nil {
		t.Fatalf("LoadFeedState: %v", err)
	}
	wantWM := time.Date(2024, time.October, 2, 16, 0, 0, 0, time.UTC)
	if wm := fstate.Watermarks["https://a.example/feed"]; !wm.Equal(wantWM) {
		t.Fatalf("watermark = %v, want %v", wm, wantWM)
	}

	handle(t, b, 1, "/del 0")
	if got := api.lastText(t); got != "Alice, 0 was removed" {
		t.Fatalf("del reply = %q", got)
	}

	subs, err := store.LoadSubscriptions(ctx, 1)
	if err != nil {
		t.Fatalf("LoadSubscriptions: %v", err)
	}
	want := &model.SubscriptionList{Entries: []model.Subscription{
		{URL: "https://b.example/feed", Keywords: []string{"k8s", "release"}},
	}}
	if diff := cmp.Diff(want, subs); diff != "" {
		t.Fatalf("subscriptions mismatch (-want +got):\n%s", diff)
	}

	handle(t, b, 1, "/del 5")
	if got := api.lastText(t); got != "Alice, index 5 is not known" {
		t.Fatalf("bad index reply = %q", got)
	}
}

func TestAddRefusesUnparsableFeed(t *testing.T) {
	b, api, store := newTestBot(t, &fixtureHTTP{err: fmt.Errorf("connection refused")})

	handle(t, b, 1, "/auth s3cret")
	handle(t, b, 1, "/add https://down.example/feed")
	if got := api.lastText(t); got != "Alice, that's not looking like a valid RSS feed" {
		t.Fatalf("reply = %q", got)
	}

	subs, err := store.LoadSubscriptions(context.Background(), 1)
	if err != nil {
		t.Fatalf("LoadSubscriptions: %v", err)
	}
	if len(subs.Entries) != 0 {
		t.Fatalf("expected no subscriptions, got %+v", subs.Entries)
	}
}

func TestWords(t *testing.T) {
	b, api, store := newTestBot(t, &fixtureHTTP{status: 200, body: rssFixture(t)})
	ctx := context.Background()

	handle(t, b, 1, "/auth s3cret")
	handle(t, b, 1, "/add https://a.example/feed old stale")

	tests := []struct {
		name string
		cmd  string
		want []string
	}{
		{name: "replace", cmd: "/words 0 golang docker", want: []string{"golang", "docker"}},
		{name: "add one", cmd: "/words add 0 linux", want: []string{"golang", "docker", "linux"}},
		{name: "del one case-insensitive", cmd: "/words del 0 DOCKER", want: []string{"golang", "linux"}},
		{name: "clear", cmd: "/words 0", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handle(t, b, 1, tt.cmd)
			if got := api.lastText(t); got != "Alice, 0 was updated" {
				t.Fatalf("reply = %q", got)
			}
			subs, err := store.LoadSubscriptions(ctx, 1)
			if err != nil {
				t.Fatalf("LoadSubscriptions: %v", err)
			}
			if diff := cmp.Diff(tt.want, subs.Entries[0].Keywords); diff != "" {
				t.Fatalf("keywords mismatch (-want +got):\n%s", diff)
			}
		})
	}

	handle(t, b, 1, "/words 7 irrelevant")
	if got := api.lastText(t); got != "Alice, index 7 is not known" {
		t.Fatalf("bad index reply = %q", got)
	}
}

func TestMuteUnmuteStop(t *testing.T) {
	b, api, store := newTestBot(t, &fixtureHTTP{status: 200})
	ctx := context.Background()

	handle(t, b, 1, "/auth s3cret")

	handle(t, b, 1, "/mute")
	if got := api.lastText(t); got != "Alice, bot muted" {
		t.Fatalf("mute reply = %q", got)
	}
	mute, err := store.LoadMuteState(ctx, 1)
	if err != nil {
		t.Fatalf("LoadMuteState: %v", err)
	}
	if !mute.Muted {
		t.Fatal("expected Muted")
	}

	handle(t, b, 1, "/unmute")
	if got := api.lastText(t); got != "Alice, bot un-muted" {
		t.Fatalf("unmute reply = %q", got)
	}

	handle(t, b, 1, "/stop")
	if got := api.lastText(t); got != "Alice, bot won't bother you" {
		t.Fatalf("stop reply = %q", got)
	}
	mute, err = store.LoadMuteState(ctx, 1)
	if err != nil {
		t.Fatalf("LoadMuteState: %v", err)
	}
	if !mute.Stopped {
		t.Fatal("expected Stopped")
	}

	// Any edit wakes a stopped user.
	handle(t, b, 1, "/list")
	mute, err = store.LoadMuteState(ctx, 1)
	if err != nil {
		t.Fatalf("LoadMuteState: %v", err)
	}
	if mute.Stopped {
		t.Fatal("expected /list to clear Stopped")
	}
}

func TestHours(t *testing.T) {
	b, api, store := newTestBot(t, &fixtureHTTP{status: 200})
	ctx := context.Background()

	handle(t, b, 1, "/auth s3cret")

	handle(t, b, 1, "/hours 7 20")
	if got := api.lastText(t); got != "Alice, alerts stay on between 7:00 and 20:00 only" {
		t.Fatalf("hours reply = %q", got)
	}
	mute, err := store.LoadMuteState(ctx, 1)
	if err != nil {
		t.Fatalf("LoadMuteState: %v", err)
	}
	if mute.DaySecondsFrom != 7*3600 || mute.DaySecondsTo != 20*3600 {
		t.Fatalf("hours stored = %d..%d", mute.DaySecondsFrom, mute.DaySecondsTo)
	}

	// from > to is stored verbatim.
	handle(t, b, 1, "/hours 22 6")
	mute, err = store.LoadMuteState(ctx, 1)
	if err != nil {
		t.Fatalf("LoadMuteState: %v", err)
	}
	if mute.DaySecondsFrom != 22*3600 || mute.DaySecondsTo != 6*3600 {
		t.Fatalf("hours stored = %d..%d", mute.DaySecondsFrom, mute.DaySecondsTo)
	}

	for _, cmd := range []string{"/hours", "/hours 7", "/hours 7 24", "/hours x 9"} {
		handle(t, b, 1, cmd)
		if got := api.lastText(t); !strings.Contains(got, "Alice,") {
			t.Fatalf("%q reply = %q", cmd, got)
		}
	}
}

func TestEveryCommandReplies(t *testing.T) {
	b, api, _ := newTestBot(t, &fixtureHTTP{status: 200, body: rssFixture(t)})

	handle(t, b, 1, "/auth s3cret")

	cmds := []string{
		"/help", "/add", "/add https://a.example/feed", "/list",
		"/del", "/del 99", "/words", "/words 0 x", "/mute", "/unmute",
		"/hours 1 2", "/stop", "/bogus", "plain text",
	}
	sent := len(api.sent)
	for _, cmd := range cmds {
		handle(t, b, 1, cmd)
		if len(api.sent) != sent+1 {
			t.Fatalf("%q produced %d replies, want exactly 1", cmd, len(api.sent)-sent)
		}
		sent = len(api.sent)
	}
}
