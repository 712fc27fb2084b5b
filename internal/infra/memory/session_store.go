package memory

import (
	"sync"

	"sulla-quiz-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Engine
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Engine),
	}
}

func (s *SessionStore) Put(engine *app.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[engine.ID()] = engine
}

func (s *SessionStore) Get(sessionID string) (*app.Engine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	engine, ok := s.sessions[sessionID]
	return engine, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// List returns a snapshot of live engines.
func (s *SessionStore) List() []*app.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Engine, 0, len(s.sessions))
	for _, engine := range s.sessions {
		out = append(out, engine)
	}
	return out
}
