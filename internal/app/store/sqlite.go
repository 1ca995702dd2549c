package store

import (
	"context"
	"database/sql"
	"time"

	"chatterup/internal/app/db"
)

// SQLite is a Gateway backed by a single-file SQLite database.
// Timestamps are stored as UTC unix milliseconds.
type SQLite struct {
	sqlDB *sql.DB
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// NewSQLite opens the database at path, applies migrations and returns the gateway.
func NewSQLite(path string) (*SQLite, error) {
	sqlDB, err := db.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	return &SQLite{sqlDB: sqlDB}, nil
}

func (s *SQLite) AppendMessage(ctx context.Context, msg Message) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO messages (name, avatar, text, created_at) VALUES (?, ?, ?, ?)`,
		msg.Name, msg.Avatar, msg.Text, toMillis(msg.CreatedAt),
	)
	return wrapErr("append_message", err)
}

func (s *SQLite) RecentMessages(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		return []Message{}, nil
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT name, avatar, text, created_at FROM (
		   SELECT id, name, avatar, text, created_at
		   FROM messages
		   ORDER BY created_at DESC, id DESC
		   LIMIT ?
		 )
		 ORDER BY created_at ASC, id ASC`,
		limit,
	)
	if err != nil {
		return nil, wrapErr("recent_messages", err)
	}
	defer rows.Close()

	messages := make([]Message, 0, limit)
	for rows.Next() {
		var (
			m         Message
			createdAt int64
		)
		if err := rows.Scan(&m.Name, &m.Avatar, &m.Text, &createdAt); err != nil {
			return nil, wrapErr("recent_messages", err)
		}
		m.CreatedAt = fromMillis(createdAt)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("recent_messages", err)
	}

	return messages, nil
}

func (s *SQLite) UpsertProfile(ctx context.Context, profile Profile) error {
	now := toMillis(time.Now())
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (name, avatar, online, last_seen, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET
		   avatar = excluded.avatar,
		   online = excluded.online,
		   last_seen = excluded.last_seen,
		   updated_at = excluded.updated_at`,
		profile.Name, profile.Avatar, profile.Online, toMillis(profile.LastSeen), now, now,
	)
	return wrapErr("upsert_profile", err)
}

// Profile reads back the stored profile for name.
func (s *SQLite) Profile(ctx context.Context, name string) (Profile, error) {
	var (
		p        Profile
		lastSeen int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT name, avatar, online, last_seen FROM users WHERE name = ?`, name,
	).Scan(&p.Name, &p.Avatar, &p.Online, &lastSeen)
	if err != nil {
		return Profile{}, wrapErr("get_profile", err)
	}
	p.LastSeen = fromMillis(lastSeen)
	return p, nil
}

func (s *SQLite) Close() error {
	return s.sqlDB.Close()
}
