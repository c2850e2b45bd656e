package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a chat does not exist for the user.
var ErrNotFound = errors.New("chat not found")

// ChatRepository persists finished runs per user.
type ChatRepository interface {
	Save(ctx context.Context, chat Chat) error
	Get(ctx context.Context, userID, id string) (Chat, error)
	// ListByUser returns the user's chats, newest first.
	ListByUser(ctx context.Context, userID string) ([]Chat, error)
	// Delete reports whether a chat was removed.
	Delete(ctx context.Context, userID, id string) (bool, error)
	Close() error
}

// PersistenceFailure wraps an error raised by a storage backend.
type PersistenceFailure struct {
	Op  string
	Err error
}

func (f *PersistenceFailure) Error() string {
	return fmt.Sprintf("store %s: %v", f.Op, f.Err)
}

func (f *PersistenceFailure) Unwrap() error { return f.Err }

func fail(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return &PersistenceFailure{Op: op, Err: err}
}

// Options selects a backend.
type Options struct {
	Type string // memory, sqlite, postgres
	Path string
	DSN  string
}

// Open builds the repository named by opts.
func Open(opts Options) (ChatRepository, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Type)) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(opts.Path)
	case "postgres":
		return NewPostgresStore(opts.DSN)
	default:
		return nil, fmt.Errorf("unknown memory type %q", opts.Type)
	}
}
