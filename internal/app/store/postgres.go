package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chatterup/internal/app/db"
)

// Postgres is a Gateway backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn, applies migrations and returns the gateway.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) AppendMessage(ctx context.Context, msg Message) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO messages (name, avatar, text, created_at) VALUES ($1, $2, $3, $4)`,
		msg.Name, msg.Avatar, msg.Text, msg.CreatedAt.UTC(),
	)
	return wrapErr("append_message", err)
}

func (p *Postgres) RecentMessages(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		return []Message{}, nil
	}

	rows, err := p.pool.Query(ctx,
		`SELECT name, avatar, text, created_at FROM (
		   SELECT id, name, avatar, text, created_at
		   FROM messages
		   ORDER BY created_at DESC, id DESC
		   LIMIT $1
		 ) recent
		 ORDER BY created_at ASC, id ASC`,
		limit,
	)
	if err != nil {
		return nil, wrapErr("recent_messages", err)
	}

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Message, error) {
		var m Message
		err := row.Scan(&m.Name, &m.Avatar, &m.Text, &m.CreatedAt)
		m.CreatedAt = m.CreatedAt.UTC()
		return m, err
	})
	if err != nil {
		return nil, wrapErr("recent_messages", err)
	}

	return messages, nil
}

func (p *Postgres) UpsertProfile(ctx context.Context, profile Profile) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO users (name, avatar, online, last_seen)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO UPDATE SET
		   avatar = EXCLUDED.avatar,
		   online = EXCLUDED.online,
		   last_seen = EXCLUDED.last_seen,
		   updated_at = now()`,
		profile.Name, profile.Avatar, profile.Online, profile.LastSeen.UTC(),
	)
	return wrapErr("upsert_profile", err)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
