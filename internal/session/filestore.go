package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"aegis/internal/memory"
)

// persisted is the on-disk form of one session: identity plus the memory
// manager's exported state.
type persisted struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	State     memory.State `json:"state"`
}

// FileStore keeps one JSON file per session under a directory. It backs
// short-lived processes that need sessions to outlive them; hosts keeping
// sessions hot in memory use MemoryStore instead.
type FileStore struct {
	mu         sync.Mutex
	dir        string
	newManager func() *memory.Manager
}

// NewFileStore creates (or reuses) the session directory.
func NewFileStore(dir string, newManager func() *memory.Manager) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileStore{dir: dir, newManager: newManager}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Get loads a session from disk, rehydrating its memory manager.
func (s *FileStore) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", id, err)
	}

	mgr := s.newManager()
	mgr.Import(p.State)
	return &Session{
		ID:        p.ID,
		Memory:    mgr,
		CreatedAt: p.CreatedAt,
	}, nil
}

// Create registers a new session and writes its initial empty state.
func (s *FileStore) Create() *Session {
	sess := &Session{
		ID:        uuid.NewString(),
		Memory:    s.newManager(),
		CreatedAt: time.Now(),
	}
	_ = s.Save(sess)
	return sess
}

// Save writes the session's current memory state to disk. Callers invoke
// it after each logical operation; the store does not watch for changes.
func (s *FileStore) Save(sess *Session) error {
	data, err := json.MarshalIndent(persisted{
		ID:        sess.ID,
		CreatedAt: sess.CreatedAt,
		State:     sess.Memory.Export(),
	}, "", "  ")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return os.WriteFile(s.path(sess.ID), data, 0o644)
}

// Delete removes a session's file.
func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// List returns the IDs of every stored session.
func (s *FileStore) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids
}
