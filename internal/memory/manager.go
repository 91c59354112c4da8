// Package memory implements the bounded conversational window with
// triggered compaction. When the window is full, the whole window is
// summarized through the completion provider and replaced by a Summary;
// summarization cost therefore scales with the window size per slide.
// That trade keeps summary ranges aligned to window boundaries.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"aegis/internal/provider"
	"aegis/internal/schema"
)

// Role identifies the author of an interaction.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Interaction is one turn in a conversation. Immutable once created;
// destroyed only by window eviction or a full reset.
type Interaction struct {
	Role       Role      `json:"role"`
	Text       string    `json:"text"`
	SequenceID int64     `json:"sequence_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// SummaryRange is the inclusive sequence-ID range a summary covers.
type SummaryRange struct {
	Start int64 `json:"start_sequence_id"`
	End   int64 `json:"end_sequence_id"`
}

// Summary is a compressed representation of a contiguous, evicted range
// of interactions.
type Summary struct {
	Range     SummaryRange `json:"range"`
	Text      string       `json:"text"`
	Reasoning string       `json:"reasoning,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Config bounds the window and the summary buffer.
type Config struct {
	WindowSize   int `json:"window_size" yaml:"window_size"`
	MaxSummaries int `json:"max_summaries" yaml:"max_summaries"`
}

// DefaultConfig returns the standard bounds.
func DefaultConfig() Config {
	return Config{
		WindowSize:   21,
		MaxSummaries: 3,
	}
}

// merge fills unset fields of c from other.
func (c Config) merge(other Config) Config {
	if c.WindowSize == 0 {
		c.WindowSize = other.WindowSize
	}
	if c.MaxSummaries == 0 {
		c.MaxSummaries = other.MaxSummaries
	}
	return c
}

// HydratedContext is the combination of raw recent interactions and
// historical summaries handed to a model call as background.
type HydratedContext struct {
	// RecentHistory is the current window, oldest first.
	RecentHistory []Interaction

	// ContextSummaries is newest-first so prompt construction leads with
	// the most recent history.
	ContextSummaries []Summary
}

// String renders the hydrated context as a prompt-side context block.
func (h HydratedContext) String() string {
	var sb strings.Builder
	if len(h.ContextSummaries) > 0 {
		sb.WriteString("## Conversation summaries (newest first)\n")
		for _, s := range h.ContextSummaries {
			fmt.Fprintf(&sb, "- [turns %d-%d] %s\n", s.Range.Start, s.Range.End, s.Text)
		}
		sb.WriteString("\n")
	}
	if len(h.RecentHistory) > 0 {
		sb.WriteString("## Recent history\n")
		for _, i := range h.RecentHistory {
			fmt.Fprintf(&sb, "[%s]: %s\n", i.Role, i.Text)
		}
	}
	return sb.String()
}

// Status is a read-only snapshot of the manager's counters.
type Status struct {
	TotalInteractions   int64 `json:"total_interactions"`
	CurrentWindowSize   int   `json:"current_window_size"`
	SummariesCount      int   `json:"summaries_count"`
	OldestInteractionID int64 `json:"oldest_interaction_id"`
	NewestInteractionID int64 `json:"newest_interaction_id"`
}

// State is the full serializable state for persistence handoff.
type State struct {
	Window    []Interaction `json:"window"`
	Summaries []Summary     `json:"summaries"`
	Counter   int64         `json:"counter"`
	Config    Config        `json:"config"`
}

// summarizeInstruction is the fixed compaction instruction.
const summarizeInstruction = "Summarize the following conversation. Preserve goals, " +
	"decisions, state changes, and technical details. Be concise; drop pleasantries."

// Manager owns one conversation's memory state. All operations are
// serialized by an internal mutex; a manager must be used by one logical
// session only.
type Manager struct {
	mu sync.Mutex

	cfg    Config
	llm    provider.Client
	logger *zap.Logger

	window    []Interaction
	summaries []Summary
	counter   int64
}

// NewManager creates a manager with the given bounds. A nil llm makes
// every compaction fail (and be skipped); use it only where compaction
// can never trigger.
func NewManager(llm provider.Client, logger *zap.Logger, cfg Config) *Manager {
	cfg = cfg.merge(DefaultConfig())
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:    cfg,
		llm:    llm,
		logger: logger,
	}
}

// AddInteraction appends a turn. If the window is already at capacity the
// entire current window is compacted into a Summary and evicted before the
// new turn is stored, so the window bound holds after every call. A failed
// compaction is logged and skipped: the oldest interaction alone is
// evicted and no summary is recorded for that slide.
func (m *Manager) AddInteraction(ctx context.Context, role Role, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.window) >= m.cfg.WindowSize {
		if err := m.compact(ctx); err != nil {
			m.logger.Warn("compaction failed, sliding window without summary",
				zap.Int64("oldest", m.window[0].SequenceID),
				zap.Error(err))
			m.window = m.window[1:]
		} else {
			m.window = m.window[:0]
		}
	}

	m.counter++
	m.window = append(m.window, Interaction{
		Role:       role,
		Text:       text,
		SequenceID: m.counter,
		Timestamp:  time.Now(),
	})
}

// compact summarizes the entire current window into one Summary.
// Caller holds the mutex.
func (m *Manager) compact(ctx context.Context) error {
	if len(m.window) == 0 {
		return nil
	}
	if m.llm == nil {
		return fmt.Errorf("no completion client configured")
	}

	var sb strings.Builder
	for _, i := range m.window {
		fmt.Fprintf(&sb, "[%s]: %s\n", i.Role, i.Text)
	}

	var payload schema.SummaryPayload
	err := m.llm.CompleteStructured(ctx, provider.Request{
		System:      summarizeInstruction,
		Prompt:      sb.String(),
		Temperature: 0.2,
	}, schema.SummarizeContract(), &payload)
	if err != nil {
		return fmt.Errorf("summarization call failed: %w", err)
	}

	summary := Summary{
		Range: SummaryRange{
			Start: m.window[0].SequenceID,
			End:   m.window[len(m.window)-1].SequenceID,
		},
		Text:      payload.Summary,
		Reasoning: payload.Reasoning,
		Timestamp: time.Now(),
	}

	m.summaries = append(m.summaries, summary)
	if len(m.summaries) > m.cfg.MaxSummaries {
		m.summaries = m.summaries[len(m.summaries)-m.cfg.MaxSummaries:]
	}

	m.logger.Debug("window compacted",
		zap.Int64("start", summary.Range.Start),
		zap.Int64("end", summary.Range.End),
		zap.Int("summaries", len(m.summaries)))
	return nil
}

// HydratedContext returns recent history plus summaries, newest summary
// first. Pure read.
func (m *Manager) HydratedContext() HydratedContext {
	m.mu.Lock()
	defer m.mu.Unlock()

	recent := make([]Interaction, len(m.window))
	copy(recent, m.window)

	reversed := make([]Summary, len(m.summaries))
	for i, s := range m.summaries {
		reversed[len(m.summaries)-1-i] = s
	}

	return HydratedContext{
		RecentHistory:    recent,
		ContextSummaries: reversed,
	}
}

// Status returns counters for the current state. Pure read.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		TotalInteractions: m.counter,
		CurrentWindowSize: len(m.window),
		SummariesCount:    len(m.summaries),
	}
	if len(m.window) > 0 {
		st.OldestInteractionID = m.window[0].SequenceID
		st.NewestInteractionID = m.window[len(m.window)-1].SequenceID
	}
	return st
}

// Export serializes the full state for persistence handoff.
func (m *Manager) Export() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	window := make([]Interaction, len(m.window))
	copy(window, m.window)
	summaries := make([]Summary, len(m.summaries))
	copy(summaries, m.summaries)

	return State{
		Window:    window,
		Summaries: summaries,
		Counter:   m.counter,
		Config:    m.cfg,
	}
}

// Import replaces the manager's state. The manager's own config (supplied
// at construction) takes precedence over the imported one; missing fields
// fall back to defaults. Missing slices become empty.
func (m *Manager) Import(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cfg = m.cfg.merge(state.Config).merge(DefaultConfig())

	m.window = append([]Interaction(nil), state.Window...)
	m.summaries = append([]Summary(nil), state.Summaries...)
	m.counter = state.Counter

	// Trim anything over the effective bounds, oldest first.
	if len(m.window) > m.cfg.WindowSize {
		m.window = m.window[len(m.window)-m.cfg.WindowSize:]
	}
	if len(m.summaries) > m.cfg.MaxSummaries {
		m.summaries = m.summaries[len(m.summaries)-m.cfg.MaxSummaries:]
	}
}

// Reset clears the window, summaries, and counter.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.window = nil
	m.summaries = nil
	m.counter = 0
}
