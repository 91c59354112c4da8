package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func addN(t *testing.T, m *Manager, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		m.AddInteraction(ctx, role, fmt.Sprintf("turn %d", i+1))
	}
}

func TestWindowBoundHolds(t *testing.T) {
	stub := &stubSummarizer{prefix: "summary"}
	m := NewManager(stub, nil, Config{WindowSize: 3, MaxSummaries: 3})

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		m.AddInteraction(ctx, RoleUser, fmt.Sprintf("turn %d", i+1))
		if got := m.Status().CurrentWindowSize; got > 3 {
			t.Fatalf("window grew to %d after %d adds", got, i+1)
		}
	}
}

func TestSequenceIDsAreMonotonic(t *testing.T) {
	stub := &stubSummarizer{prefix: "summary"}
	m := NewManager(stub, nil, Config{WindowSize: 4, MaxSummaries: 3})
	addN(t, m, 11)

	st := m.Status()
	if st.TotalInteractions != 11 {
		t.Errorf("total = %d, want 11", st.TotalInteractions)
	}
	if st.NewestInteractionID != 11 {
		t.Errorf("newest = %d, want 11", st.NewestInteractionID)
	}

	hydrated := m.HydratedContext()
	var prev int64
	for _, i := range hydrated.RecentHistory {
		if i.SequenceID <= prev {
			t.Fatalf("sequence IDs not increasing: %d after %d", i.SequenceID, prev)
		}
		prev = i.SequenceID
	}
}

// A full lifecycle at the standard bounds: the window fills completely,
// then the 22nd turn triggers one compaction covering turns 1 through 21.
func TestCompactionLifecycle(t *testing.T) {
	stub := &stubSummarizer{prefix: "summary"}
	m := NewManager(stub, nil, Config{})

	addN(t, m, 21)
	if stub.Calls != 0 {
		t.Fatalf("compaction ran early: %d calls", stub.Calls)
	}
	if got := m.Status().CurrentWindowSize; got != 21 {
		t.Fatalf("window = %d, want 21", got)
	}

	m.AddInteraction(context.Background(), RoleUser, "turn 22")

	if stub.Calls != 1 {
		t.Fatalf("expected exactly one compaction, got %d", stub.Calls)
	}
	st := m.Status()
	if st.SummariesCount != 1 {
		t.Fatalf("summaries = %d, want 1", st.SummariesCount)
	}
	if st.CurrentWindowSize != 1 || st.NewestInteractionID != 22 || st.OldestInteractionID != 22 {
		t.Errorf("window after compaction = %+v", st)
	}

	hydrated := m.HydratedContext()
	r := hydrated.ContextSummaries[0].Range
	if r.Start != 1 || r.End != 21 {
		t.Errorf("summary range = [%d, %d], want [1, 21]", r.Start, r.End)
	}

	// The compaction prompt carries every evicted turn.
	if !strings.Contains(stub.Prompts[0], "turn 1\n") || !strings.Contains(stub.Prompts[0], "turn 21") {
		t.Error("compaction prompt missing evicted turns")
	}
}

func TestSummaryRangesAreContiguous(t *testing.T) {
	stub := &stubSummarizer{prefix: "summary"}
	m := NewManager(stub, nil, Config{WindowSize: 2, MaxSummaries: 3})
	addN(t, m, 7)

	// Three slides: [1,2], [3,4], [5,6]; turn 7 remains in the window.
	hydrated := m.HydratedContext()
	if len(hydrated.ContextSummaries) != 3 {
		t.Fatalf("summaries = %d, want 3", len(hydrated.ContextSummaries))
	}

	// Newest first in hydrated form; verify contiguity oldest to newest.
	state := m.Export()
	for i := 1; i < len(state.Summaries); i++ {
		prev, cur := state.Summaries[i-1].Range, state.Summaries[i].Range
		if cur.Start != prev.End+1 {
			t.Errorf("summary %d starts at %d, want %d", i, cur.Start, prev.End+1)
		}
	}
}

func TestSummaryBufferEvictsOldestFirst(t *testing.T) {
	stub := &stubSummarizer{prefix: "summary"}
	m := NewManager(stub, nil, Config{WindowSize: 1, MaxSummaries: 2})
	addN(t, m, 5)

	// Four compactions occurred; only the newest two summaries survive.
	state := m.Export()
	if len(state.Summaries) != 2 {
		t.Fatalf("summaries = %d, want 2", len(state.Summaries))
	}
	if state.Summaries[0].Range.Start != 3 || state.Summaries[1].Range.Start != 4 {
		t.Errorf("wrong summaries survived: %+v", state.Summaries)
	}
}

func TestHydratedContextOrdersSummariesNewestFirst(t *testing.T) {
	stub := &stubSummarizer{prefix: "summary"}
	m := NewManager(stub, nil, Config{WindowSize: 1, MaxSummaries: 3})
	addN(t, m, 4)

	hydrated := m.HydratedContext()
	if len(hydrated.ContextSummaries) != 3 {
		t.Fatalf("summaries = %d, want 3", len(hydrated.ContextSummaries))
	}
	for i := 1; i < len(hydrated.ContextSummaries); i++ {
		if hydrated.ContextSummaries[i].Range.Start > hydrated.ContextSummaries[i-1].Range.Start {
			t.Fatal("summaries not newest first")
		}
	}

	rendered := hydrated.String()
	if !strings.Contains(rendered, "## Conversation summaries (newest first)") {
		t.Error("rendered context missing summaries header")
	}
	if !strings.Contains(rendered, "## Recent history") {
		t.Error("rendered context missing history header")
	}
	if !strings.Contains(rendered, "[assistant]: turn 4") {
		t.Error("rendered context missing newest turn")
	}
}

func TestFailedCompactionSlidesWithoutSummary(t *testing.T) {
	stub := &stubSummarizer{Err: errors.New("model unavailable")}
	m := NewManager(stub, nil, Config{WindowSize: 3, MaxSummaries: 3})
	addN(t, m, 4)

	st := m.Status()
	if st.SummariesCount != 0 {
		t.Errorf("failed compaction produced a summary")
	}
	if st.CurrentWindowSize != 3 {
		t.Errorf("window = %d, want 3", st.CurrentWindowSize)
	}
	// Only the oldest turn was lost.
	if st.OldestInteractionID != 2 || st.NewestInteractionID != 4 {
		t.Errorf("window range = [%d, %d], want [2, 4]", st.OldestInteractionID, st.NewestInteractionID)
	}
}

func TestNilClientNeverPanics(t *testing.T) {
	m := NewManager(nil, nil, Config{WindowSize: 2, MaxSummaries: 1})
	addN(t, m, 5)

	st := m.Status()
	if st.SummariesCount != 0 {
		t.Error("nil client produced a summary")
	}
	if st.CurrentWindowSize != 2 {
		t.Errorf("window = %d, want 2", st.CurrentWindowSize)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	stub := &stubSummarizer{prefix: "summary"}
	m := NewManager(stub, nil, Config{WindowSize: 3, MaxSummaries: 2})
	addN(t, m, 8)

	state := m.Export()

	restored := NewManager(stub, nil, Config{WindowSize: 3, MaxSummaries: 2})
	restored.Import(state)

	if diff := cmp.Diff(state, restored.Export()); diff != "" {
		t.Errorf("state mismatch after round trip (-want +got):\n%s", diff)
	}

	// The restored manager keeps counting from where the export stopped.
	restored.AddInteraction(context.Background(), RoleUser, "turn 9")
	if got := restored.Status().NewestInteractionID; got != 9 {
		t.Errorf("newest after import = %d, want 9", got)
	}
}

func TestImportTrimsOversizedState(t *testing.T) {
	donor := NewManager(&stubSummarizer{prefix: "summary"}, nil, Config{WindowSize: 10, MaxSummaries: 3})
	addN(t, donor, 25)
	state := donor.Export()

	// A tighter manager trims imported state to its own bounds, oldest
	// first.
	tight := NewManager(nil, nil, Config{WindowSize: 2, MaxSummaries: 1})
	tight.Import(state)

	st := tight.Status()
	if st.CurrentWindowSize != 2 {
		t.Errorf("window = %d, want 2", st.CurrentWindowSize)
	}
	if st.SummariesCount != 1 {
		t.Errorf("summaries = %d, want 1", st.SummariesCount)
	}
	if st.NewestInteractionID != 25 {
		t.Errorf("newest = %d, want 25 (oldest entries trimmed)", st.NewestInteractionID)
	}
}

func TestImportEmptyStateUsesDefaults(t *testing.T) {
	m := NewManager(nil, nil, Config{})
	m.Import(State{})

	st := m.Status()
	if st.TotalInteractions != 0 || st.CurrentWindowSize != 0 || st.SummariesCount != 0 {
		t.Errorf("empty import left residue: %+v", st)
	}

	// Defaults still govern the window after an empty import.
	addN(t, m, 5)
	if got := m.Status().CurrentWindowSize; got != 5 {
		t.Errorf("window = %d, want 5", got)
	}
}

func TestReset(t *testing.T) {
	stub := &stubSummarizer{prefix: "summary"}
	m := NewManager(stub, nil, Config{WindowSize: 2, MaxSummaries: 2})
	addN(t, m, 6)

	m.Reset()

	st := m.Status()
	if st.TotalInteractions != 0 || st.CurrentWindowSize != 0 || st.SummariesCount != 0 {
		t.Errorf("reset left residue: %+v", st)
	}

	// Counting restarts from one.
	m.AddInteraction(context.Background(), RoleUser, "fresh start")
	if got := m.Status().NewestInteractionID; got != 1 {
		t.Errorf("first ID after reset = %d, want 1", got)
	}
}
