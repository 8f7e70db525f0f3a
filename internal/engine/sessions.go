package engine

import (
	"sort"
	"sync"

	"github.com/atabot/atabot/internal/schema"
)

// SessionStore is an abstraction for chat session persistence. The engine
// hands finished sessions off; it never mutates a stored session.
type SessionStore interface {
	Save(session *schema.ChatSession)
	Get(id string) (*schema.ChatSession, bool)
	Delete(id string) bool
	List() []*schema.ChatSession
	// ListRange returns sessions from offset with limit, ordered by recency (desc)
	ListRange(offset, limit int) []*schema.ChatSession
	// Clean keeps at most max sessions (by recency).
	Clean(max int) error
}

// MemSessionStore keeps sessions in memory.
type MemSessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*schema.ChatSession
}

func NewMemSessionStore() *MemSessionStore {
	return &MemSessionStore{sessions: make(map[string]*schema.ChatSession)}
}

func (m *MemSessionStore) Save(session *schema.ChatSession) {
	m.mu.Lock()
	m.sessions[session.SessionID] = session
	m.mu.Unlock()
}

func (m *MemSessionStore) Get(id string) (*schema.ChatSession, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	return s, ok
}

func (m *MemSessionStore) Delete(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	return ok
}

func (m *MemSessionStore) List() []*schema.ChatSession {
	m.mu.RLock()
	out := make([]*schema.ChatSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *MemSessionStore) ListRange(offset, limit int) []*schema.ChatSession {
	list := m.List()
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || offset >= len(list) {
		return []*schema.ChatSession{}
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end]
}

func (m *MemSessionStore) Clean(max int) error {
	if max <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sessions) <= max {
		return nil
	}
	out := make([]*schema.ChatSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	for _, s := range out[max:] {
		delete(m.sessions, s.SessionID)
	}
	return nil
}
