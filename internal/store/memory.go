package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shweta09111/autostream-agent/internal/domain"
)

// MemoryStore is an in-process Repository. Sessions are copied on the way in
// and out so callers never share state with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]*domain.Session
	leads     []*domain.Lead
	bySession map[string]struct{}
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]*domain.Session),
		bySession: make(map[string]struct{}),
	}
}

// GetSession retrieves the session for a thread.
func (m *MemoryStore) GetSession(_ context.Context, threadID string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[threadID].Clone(), nil
}

// UpsertSession creates or replaces the session for its thread.
func (m *MemoryStore) UpsertSession(_ context.Context, session *domain.Session) error {
	c := session.Clone()
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ThreadID] = c
	return nil
}

// DeleteSession removes the session for a thread.
func (m *MemoryStore) DeleteSession(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, threadID)
	return nil
}

// GetExpiredSessions returns thread IDs idle for longer than ttl.
func (m *MemoryStore) GetExpiredSessions(_ context.Context, ttl time.Duration) ([]string, error) {
	threshold := time.Now().Add(-ttl)
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(threshold) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// SaveLead records a captured lead, at most one per session.
func (m *MemoryStore) SaveLead(_ context.Context, lead *domain.Lead) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bySession[lead.SessionID]; ok {
		return false, nil
	}
	c := *lead
	m.leads = append(m.leads, &c)
	m.bySession[lead.SessionID] = struct{}{}
	return true, nil
}

// ListLeads returns captured leads, oldest first.
func (m *MemoryStore) ListLeads(_ context.Context) ([]*domain.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Lead, 0, len(m.leads))
	for _, l := range m.leads {
		c := *l
		out = append(out, &c)
	}
	return out, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
