package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/richinex/anko/agent"
)

// Sessions maps session ids to live conversations with one shared agent.
type Sessions struct {
	agent *agent.Agent
	idle  time.Duration

	mu       sync.Mutex
	sessions map[string]*agent.Session
}

// NewSessions creates an empty session table. Sessions unused for longer
// than idle are closed by Sweep; zero disables expiry.
func NewSessions(a *agent.Agent, idle time.Duration) *Sessions {
	return &Sessions{
		agent:    a,
		idle:     idle,
		sessions: make(map[string]*agent.Session),
	}
}

// Get returns the live session with id. Closed sessions are reported missing.
func (m *Sessions) Get(id string) (*agent.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Closed() {
		return nil, false
	}
	return s, true
}

// Open returns the session with id, creating it when missing or closed.
// An empty id always creates a session with a fresh id.
func (m *Sessions) Open(id string) *agent.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	if s, ok := m.sessions[id]; ok && !s.Closed() {
		return s
	}
	s := agent.NewSession(id, m.agent)
	m.sessions[id] = s
	return s
}

// Delete closes and forgets a session, cancelling any turn in flight.
func (m *Sessions) Delete(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Close()
	}
	return ok
}

// Len returns the number of live sessions.
func (m *Sessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes sessions idle since before now minus the idle timeout,
// forgets sessions already closed, and returns how many it removed.
func (m *Sessions) Sweep(now time.Time) int {
	m.mu.Lock()
	var expired []*agent.Session
	for id, s := range m.sessions {
		idle := m.idle > 0 && now.Sub(s.LastUsed()) > m.idle
		if idle || s.Closed() {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	return len(expired)
}

// CloseAll closes every session.
func (m *Sessions) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*agent.Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
