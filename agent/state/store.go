package state

import "sync"

// Store keeps live sessions by conversation id. Sessions are confined to
// one process for the lifetime of the voice session and destroyed when the
// conversation ends, so the store is a guarded in-process map; the
// interface stays narrow so a remote store could be slotted in.
type Store interface {
	Get(sessionID string) (*Session, bool)
	GetOrCreate(sessionID string) *Session
	Delete(sessionID string)
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() Store {
	return &memoryStore{sessions: make(map[string]*Session)}
}

func (m *memoryStore) Get(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

func (m *memoryStore) GetOrCreate(sessionID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		return s
	}
	s := NewSession(sessionID)
	m.sessions[sessionID] = s
	return s
}

func (m *memoryStore) Delete(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}
