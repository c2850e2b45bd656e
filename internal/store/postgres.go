package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore keeps chats in the chat table of a Postgres database.
type PostgresStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fail("open", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fail("ping", err)
	}
	s := &PostgresStore{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS chat (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  title TEXT,
  user_message TEXT,
  assistant_message TEXT,
  created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
ALTER TABLE chat ADD COLUMN IF NOT EXISTS seq BIGSERIAL;
CREATE INDEX IF NOT EXISTS idx_chat_user_created ON chat (user_id, created_at DESC);
`)
		s.schemaErr = fail("migrate", err)
	})
	return s.schemaErr
}

func (s *PostgresStore) Save(ctx context.Context, chat Chat) error {
	body, err := json.Marshal(chat.Response)
	if err != nil {
		return fail("save", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO chat (id, user_id, title, user_message, assistant_message, created_at)
VALUES ($1,$2,$3,$4,$5,$6)`,
		chat.ID, chat.UserID, chat.Title, chat.ProductIdea, string(body), chat.CreatedAt)
	return fail("save", err)
}

func (s *PostgresStore) Get(ctx context.Context, userID, id string) (Chat, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, user_id, title, user_message, assistant_message, created_at
FROM chat WHERE id = $1 AND user_id = $2`, id, userID)
	chat, err := scanPostgresChat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Chat{}, ErrNotFound
	}
	return chat, fail("get", err)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Chat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, title, user_message, assistant_message, created_at
FROM chat WHERE user_id = $1 ORDER BY created_at DESC, seq DESC`, userID)
	if err != nil {
		return nil, fail("list", err)
	}
	defer rows.Close()

	chats := []Chat{}
	for rows.Next() {
		chat, err := scanPostgresChat(rows)
		if err != nil {
			return nil, fail("list", err)
		}
		chats = append(chats, chat)
	}
	return chats, fail("list", rows.Err())
}

func (s *PostgresStore) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fail("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fail("delete", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func scanPostgresChat(row rowScanner) (Chat, error) {
	var chat Chat
	var title, idea, body sql.NullString
	if err := row.Scan(&chat.ID, &chat.UserID, &title, &idea, &body, &chat.CreatedAt); err != nil {
		return Chat{}, err
	}
	chat.Title = title.String
	chat.ProductIdea = idea.String
	if err := decodeRecord(body.String, &chat.Response); err != nil {
		return Chat{}, err
	}
	return chat, nil
}
