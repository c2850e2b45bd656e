package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps chats in process memory. Each instance is independent.
type MemoryStore struct {
	mu    sync.RWMutex
	chats map[string]memoryChat
	seq   int64
}

type memoryChat struct {
	Chat
	seq int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chats: make(map[string]memoryChat)}
}

func (m *MemoryStore) Save(ctx context.Context, chat Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.chats[chat.ID] = memoryChat{Chat: chat, seq: m.seq}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, userID, id string) (Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chats[id]
	if !ok || c.UserID != userID {
		return Chat{}, ErrNotFound
	}
	return c.Chat, nil
}

func (m *MemoryStore) ListByUser(ctx context.Context, userID string) ([]Chat, error) {
	m.mu.RLock()
	matches := make([]memoryChat, 0, len(m.chats))
	for _, c := range m.chats {
		if c.UserID == userID {
			matches = append(matches, c)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].seq > matches[j].seq
	})

	chats := make([]Chat, len(matches))
	for i, c := range matches {
		chats[i] = c.Chat
	}
	return chats, nil
}

func (m *MemoryStore) Delete(ctx context.Context, userID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[id]
	if !ok || c.UserID != userID {
		return false, nil
	}
	delete(m.chats, id)
	return true, nil
}

func (m *MemoryStore) Close() error { return nil }
