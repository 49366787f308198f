package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rssmon/internal/bot"
	"rssmon/internal/config"
	"rssmon/internal/dispatcher"
	"rssmon/internal/fetcher"
	"rssmon/internal/scheduler"
	"rssmon/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Error("create telegram client", "error", err)
		os.Exit(1)
	}
	log.Info("authorized", "account", api.Self.UserName)

	f := fetcher.New(&http.Client{Timeout: 60 * time.Second})
	b := bot.New(api, store, f, cfg, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(store, f, b, scheduler.Options{
		NumWorkers:      cfg.NumPollWorkers,
		RefreshInterval: time.Duration(cfg.RefreshIntervalSeconds) * time.Second,
		MaxRecentItems:  cfg.MaxRecentItems,
	}, log)
	sched.Start(ctx)

	disp := dispatcher.New(api, b, dispatcher.Options{
		NumWorkers:         cfg.NumWorkers,
		QueueSize:          cfg.QueueSize,
		PollTimeoutSeconds: cfg.PollTimeoutSeconds,
	}, log)
	disp.Start(ctx)

	log.Info("bot started",
		"workers", cfg.NumWorkers,
		"poll_workers", cfg.NumPollWorkers,
		"refresh_interval_s", cfg.RefreshIntervalSeconds)

	err = disp.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("bot terminated", "error", err)
		os.Exit(1)
	}
	log.Info("bot stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
