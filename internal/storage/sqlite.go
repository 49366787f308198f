package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"rssmon/internal/model"
	"rssmon/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database. Each (user, kind)
// pair maps to one row holding the JSON-encoded record.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: sqlite serializes writers anyway, and a pooled
	// ":memory:" dsn would otherwise open a separate database per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// LoadAuth returns the user's auth record, or nil when none exists.
func (s *SQLite) LoadAuth(ctx context.Context, userID int64) (*model.AuthState, error) {
	var a model.AuthState
	found, err := s.load(ctx, userID, KindAuthState, &a)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &a, nil
}

// SaveAuth persists the user's auth record.
func (s *SQLite) SaveAuth(ctx context.Context, userID int64, a *model.AuthState) error {
	return s.save(ctx, userID, KindAuthState, a)
}

// LoadSubscriptions returns the user's subscription list, empty if none is stored.
func (s *SQLite) LoadSubscriptions(ctx context.Context, userID int64) (*model.SubscriptionList, error) {
	var l model.SubscriptionList
	if _, err := s.load(ctx, userID, KindSubscriptions, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// SaveSubscriptions persists the user's subscription list.
func (s *SQLite) SaveSubscriptions(ctx context.Context, userID int64, l *model.SubscriptionList) error {
	return s.save(ctx, userID, KindSubscriptions, l)
}

// LoadMuteState returns the user's mute state, defaults if none is stored.
func (s *SQLite) LoadMuteState(ctx context.Context, userID int64) (*model.MuteState, error) {
	var m model.MuteState
	if _, err := s.load(ctx, userID, KindMuteState, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SaveMuteState persists the user's mute state.
func (s *SQLite) SaveMuteState(ctx context.Context, userID int64, m *model.MuteState) error {
	return s.save(ctx, userID, KindMuteState, m)
}

// LoadFeedState returns the user's watermarks and recency cache, empty if
// none is stored.
func (s *SQLite) LoadFeedState(ctx context.Context, userID int64) (*model.FeedState, error) {
	var f model.FeedState
	if _, err := s.load(ctx, userID, KindFeedState, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// SaveFeedState persists the user's watermarks and recency cache.
func (s *SQLite) SaveFeedState(ctx context.Context, userID int64, f *model.FeedState) error {
	return s.save(ctx, userID, KindFeedState, f)
}

// ListSubscribedUsers returns the IDs of all users holding a subscription
// record, in ascending order.
func (s *SQLite) ListSubscribedUsers(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM user_records WHERE kind = ? ORDER BY user_id`,
		KindSubscriptions,
	)
	if err != nil {
		return nil, fmt.Errorf("query subscribed users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLite) load(ctx context.Context, userID int64, kind string, dest any) (bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM user_records WHERE user_id = ? AND kind = ?`,
		userID, kind,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query %s: %w", kind, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", kind, err)
	}
	return true, nil
}

func (s *SQLite) save(ctx context.Context, userID int64, kind string, src any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	now := time.Now().UTC().Format(timeLayout)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO user_records (user_id, kind, data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, kind) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		userID, kind, data, now,
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", kind, err)
	}
	return nil
}
