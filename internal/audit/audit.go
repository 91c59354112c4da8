// Package audit defines the execution audit trail. The pipeline records
// one entry per execution attempt, including blocked ones; where the
// entries end up is the sink implementation's business.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Entry is one audit record. Stdout/Stderr are pre-truncated by the
// caller; sinks store what they are given.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	Status    string    `json:"status"`
	Command   string    `json:"command"`
	Reasoning string    `json:"reasoning,omitempty"`
	Stdout    string    `json:"stdout,omitempty"`
	Stderr    string    `json:"stderr,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// Sink receives audit entries. Implementations must be safe for
// concurrent use.
type Sink interface {
	Record(entry Entry)
}

// FileSink appends entries as newline-delimited JSON.
type FileSink struct {
	mu     sync.Mutex
	file   *os.File
	logger *zap.Logger
}

// NewFileSink opens (or creates) a JSONL audit log at path.
func NewFileSink(path string, logger *zap.Logger) (*FileSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create audit directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return &FileSink{file: f, logger: logger}, nil
}

// Record appends one JSONL line. Write failures are logged, not
// propagated: auditing must never block an execution result.
func (s *FileSink) Record(entry Entry) {
	line, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn("audit entry not serializable", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(append(line, '\n')); err != nil {
		s.logger.Warn("audit write failed", zap.Error(err))
	}
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// MemorySink buffers entries in memory. Intended for tests.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Record(entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

// Entries returns a copy of everything recorded so far.
func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Record(Entry) {}
