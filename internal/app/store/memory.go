package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is a process-local Gateway. Messages and profiles are lost on restart.
type Memory struct {
	mu       sync.RWMutex
	messages []Message
	profiles map[string]Profile
	closed   bool
}

// NewMemory returns an empty in-memory gateway.
func NewMemory() *Memory {
	return &Memory{profiles: make(map[string]Profile)}
}

func (m *Memory) AppendMessage(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return wrapErr("append_message", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return wrapErr("append_message", ErrUnavailable)
	}

	// keep messages sorted by CreatedAt; insertion order breaks ties
	i := sort.Search(len(m.messages), func(i int) bool {
		return m.messages[i].CreatedAt.After(msg.CreatedAt)
	})
	m.messages = append(m.messages, Message{})
	copy(m.messages[i+1:], m.messages[i:])
	m.messages[i] = msg

	return nil
}

func (m *Memory) RecentMessages(ctx context.Context, limit int) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapErr("recent_messages", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, wrapErr("recent_messages", ErrUnavailable)
	}

	if limit <= 0 {
		return []Message{}, nil
	}

	start := 0
	if len(m.messages) > limit {
		start = len(m.messages) - limit
	}

	out := make([]Message, len(m.messages)-start)
	copy(out, m.messages[start:])
	return out, nil
}

func (m *Memory) UpsertProfile(ctx context.Context, profile Profile) error {
	if err := ctx.Err(); err != nil {
		return wrapErr("upsert_profile", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return wrapErr("upsert_profile", ErrUnavailable)
	}

	m.profiles[profile.Name] = profile
	return nil
}

// Profile returns the stored profile for name.
func (m *Memory) Profile(name string) (Profile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[name]
	return p, ok
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}
