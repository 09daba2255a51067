package sessionlog

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store. Used by tests and by callers that do
// not want persistence.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string][]Event{}}
}

func (m *MemoryStore) RecordEvent(ctx context.Context, sessionID string, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev = normalize(sessionID, ev)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], ev)
	return nil
}

func (m *MemoryStore) Events(ctx context.Context, sessionID string) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.sessions[sessionID]))
	copy(out, m.sessions[sessionID])
	return out, nil
}

func (m *MemoryStore) Sessions(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
