package storage

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/furnicon/furnicon/internal/pipeline"
	"github.com/google/uuid"
)

// Session is one operator's workspace: a pipeline of its own over the shared catalog
type Session struct {
	ID        string
	CreatedAt time.Time
	Pipeline  *pipeline.Pipeline
}

type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session around p under a fresh id
func (s *SessionStore) Create(p *pipeline.Pipeline) *Session {
	session := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Pipeline:  p,
	}
	s.Set(session.ID, session)
	return session
}

func (s *SessionStore) Get(sessionID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

func (s *SessionStore) Set(sessionID string, session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = session
}

// List returns every session, oldest first
func (s *SessionStore) List() []*Session {
	s.mu.RLock()
	result := make([]*Session, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, v)
	}
	s.mu.RUnlock()

	slices.SortFunc(result, func(a, b *Session) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result
}

// Delete drops the session, resetting its pipeline so in-flight processing stops
func (s *SessionStore) Delete(sessionID string) bool {
	s.mu.Lock()
	session, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if exists && session.Pipeline != nil {
		session.Pipeline.Reset()
	}
	return exists
}
