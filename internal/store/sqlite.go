package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/rahul/blueprint/internal/agent"
)

// timeLayout sorts lexicographically for UTC values.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteStore struct {
	DB *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fail("open", err)
	}
	// a single writer avoids SQLITE_BUSY under concurrent requests
	db.SetMaxOpenConns(1)

	queries := []string{
		`CREATE TABLE IF NOT EXISTS chat (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT,
			user_message TEXT,
			assistant_message TEXT,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_user_created ON chat (user_id, created_at);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fail("migrate", err)
		}
	}

	return &SQLiteStore{DB: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, chat Chat) error {
	body, err := json.Marshal(chat.Response)
	if err != nil {
		return fail("save", err)
	}
	query := `INSERT INTO chat (id, user_id, title, user_message, assistant_message, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err = s.DB.ExecContext(ctx, query,
		chat.ID, chat.UserID, chat.Title, chat.ProductIdea, string(body),
		chat.CreatedAt.UTC().Format(timeLayout))
	return fail("save", err)
}

func (s *SQLiteStore) Get(ctx context.Context, userID, id string) (Chat, error) {
	query := `SELECT id, user_id, title, user_message, assistant_message, created_at FROM chat WHERE id = ? AND user_id = ?`
	chat, err := scanSQLiteChat(s.DB.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Chat{}, ErrNotFound
	}
	return chat, fail("get", err)
}

func (s *SQLiteStore) ListByUser(ctx context.Context, userID string) ([]Chat, error) {
	query := `SELECT id, user_id, title, user_message, assistant_message, created_at
		FROM chat WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fail("list", err)
	}
	defer rows.Close()

	chats := []Chat{}
	for rows.Next() {
		chat, err := scanSQLiteChat(rows)
		if err != nil {
			return nil, fail("list", err)
		}
		chats = append(chats, chat)
	}
	return chats, fail("list", rows.Err())
}

func (s *SQLiteStore) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM chat WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fail("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fail("delete", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Close() error { return s.DB.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteChat(row rowScanner) (Chat, error) {
	var chat Chat
	var title, idea, body sql.NullString
	var created string
	if err := row.Scan(&chat.ID, &chat.UserID, &title, &idea, &body, &created); err != nil {
		return Chat{}, err
	}
	chat.Title = title.String
	chat.ProductIdea = idea.String

	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return Chat{}, err
	}
	chat.CreatedAt = t

	if err := decodeRecord(body.String, &chat.Response); err != nil {
		return Chat{}, err
	}
	return chat, nil
}

func decodeRecord(body string, rec *agent.Record) error {
	if body == "" {
		*rec = agent.Record{}
		return nil
	}
	return json.Unmarshal([]byte(body), rec)
}
