// Package session provides the session store: each session exclusively
// owns one memory manager. Cross-session operations are independent;
// within a session, callers serialize through the session's lock.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"aegis/internal/memory"
)

// ErrNotFound is returned when a session ID is unknown.
var ErrNotFound = errors.New("session not found")

// Session is one conversation's state. The mutex serializes logical
// operations across the session's lifetime; hosts fanning out many
// sessions take it around each route/execute cycle.
type Session struct {
	ID        string
	Memory    *memory.Manager
	CreatedAt time.Time

	mu sync.Mutex
}

// Lock acquires the session for one logical operation.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// Store is the session registry contract. The in-memory map is one valid
// backing, not the only one.
type Store interface {
	Get(id string) (*Session, error)
	Create() *Session
	Delete(id string) error
	List() []string
}

// MemoryStore keeps sessions in a process-local map.
type MemoryStore struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	newManager func() *memory.Manager
}

// NewMemoryStore creates a store; newManager builds the memory manager
// for each new session.
func NewMemoryStore(newManager func() *memory.Manager) *MemoryStore {
	return &MemoryStore{
		sessions:   make(map[string]*Session),
		newManager: newManager,
	}
}

func (s *MemoryStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *MemoryStore) Create() *Session {
	sess := &Session{
		ID:        uuid.NewString(),
		Memory:    s.newManager(),
		CreatedAt: time.Now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return sess
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}
