package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"sulla-quiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Engines own timers and subscribers, so they stay in a local map on the
//     instance that created them.
//   - Redis holds a liveness marker per session ({quizID} as value) so other
//     instances and operators can see which sessions are live and where.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Engine
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Engine),
	}
}

// Put, Get and Delete touch Redis outside mu, so a slow Redis never blocks local lookups.
func (s *SessionStore) Put(engine *app.Engine) {
	s.mu.Lock()
	s.sessions[engine.ID()] = engine
	s.mu.Unlock()
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(engine.ID()), engine.QuizID(), s.ttl).Err()
}

func (s *SessionStore) Get(sessionID string) (*app.Engine, bool) {
	s.mu.RLock()
	engine, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok && s.ttl > 0 {
		_ = s.client.Expire(context.Background(), s.key(sessionID), s.ttl).Err()
	}
	return engine, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

func (s *SessionStore) List() []*app.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Engine, 0, len(s.sessions))
	for _, engine := range s.sessions {
		out = append(out, engine)
	}
	return out
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
