package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    *Config
		wantErr bool
	}{
		{
			name:    "missing token",
			env:     map[string]string{"BOT_SECRET": "s3cret"},
			wantErr: true,
		},
		{
			name:    "missing secret",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": "tok"},
			wantErr: true,
		},
		{
			name: "required only, defaults applied",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "test-token",
				"BOT_SECRET":         "s3cret",
			},
			want: &Config{
				TelegramBotToken:       "test-token",
				BotSecret:              "s3cret",
				DatabasePath:           "./data/bot.db",
				LogLevel:               "info",
				NumWorkers:             4,
				QueueSize:              1000,
				PollTimeoutSeconds:     60,
				NumPollWorkers:         4,
				RefreshIntervalSeconds: 300,
				MaxRecentItems:         500,
			},
		},
		{
			name: "all values set",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN":       "tok",
				"BOT_SECRET":               "s",
				"DATABASE_PATH":            "/tmp/bot.db",
				"LOG_LEVEL":                "debug",
				"NUM_WORKERS":              "8",
				"QUEUE_SIZE":               "50",
				"POLL_TIMEOUT_SECONDS":     "30",
				"NUM_POLL_WORKERS":         "2",
				"REFRESH_INTERVAL_SECONDS": "60",
				"MAX_RECENT_ITEMS":         "40",
			},
			want: &Config{
				TelegramBotToken:       "tok",
				BotSecret:              "s",
				DatabasePath:           "/tmp/bot.db",
				LogLevel:               "debug",
				NumWorkers:             8,
				QueueSize:              50,
				PollTimeoutSeconds:     30,
				NumPollWorkers:         2,
				RefreshIntervalSeconds: 60,
				MaxRecentItems:         40,
			},
		},
		{
			name: "non-numeric worker count",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"BOT_SECRET":         "s",
				"NUM_WORKERS":        "lots",
			},
			wantErr: true,
		},
		{
			name: "out of range refresh interval",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN":       "tok",
				"BOT_SECRET":               "s",
				"REFRESH_INTERVAL_SECONDS": "0",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{
				"TELEGRAM_BOT_TOKEN", "BOT_SECRET", "DATABASE_PATH", "LOG_LEVEL",
				"NUM_WORKERS", "QUEUE_SIZE", "POLL_TIMEOUT_SECONDS",
				"NUM_POLL_WORKERS", "REFRESH_INTERVAL_SECONDS", "MAX_RECENT_ITEMS",
			} {
				t.Setenv(key, "")
				if v, ok := tt.env[key]; ok {
					t.Setenv(key, v)
				}
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
