package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"aegis/internal/audit"
)

// collectSink gathers events; after failAfter sends it starts returning
// an error, simulating a closed transport.
type collectSink struct {
	mu        sync.Mutex
	events    []Event
	failAfter int
}

func (s *collectSink) Send(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter > 0 && len(s.events) >= s.failAfter {
		return errors.New("sink closed")
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *collectSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *collectSink) types() []string {
	out := []string{}
	for _, ev := range s.Events() {
		out = append(out, ev.Type)
	}
	return out
}

func TestExecuteStreamEventSequence(t *testing.T) {
	p := testPipeline(nil)
	sink := &collectSink{}

	result, err := p.ExecuteStream(context.Background(), Proposal{Command: "echo streamed"}, Options{}, sink)
	if err != nil {
		t.Fatalf("ExecuteStream failed: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("status = %s", result.Status)
	}

	events := sink.Events()
	if len(events) < 3 {
		t.Fatalf("expected start, stdout, complete; got %v", sink.types())
	}
	if events[0].Type != EventStart || events[0].Command != "echo streamed" {
		t.Errorf("first event = %+v", events[0])
	}
	last := events[len(events)-1]
	if last.Type != EventComplete {
		t.Fatalf("terminal event = %s", last.Type)
	}
	if last.Result == nil || last.Result.Status != StatusSuccess {
		t.Errorf("complete event result = %+v", last.Result)
	}

	var streamed strings.Builder
	for _, ev := range events {
		if ev.Type == EventStdout {
			streamed.WriteString(ev.Data)
		}
		if ev.Timestamp.IsZero() {
			t.Errorf("event %s has no timestamp", ev.Type)
		}
	}
	if streamed.String() != "streamed\n" {
		t.Errorf("streamed stdout = %q", streamed.String())
	}
	if result.Stdout != "streamed\n" {
		t.Errorf("buffered stdout = %q", result.Stdout)
	}
}

func TestExecuteStreamStderrEvents(t *testing.T) {
	p := testPipeline(nil)
	sink := &collectSink{}

	result, err := p.ExecuteStream(context.Background(), Proposal{Command: "echo warn >&2"}, Options{}, sink)
	if err != nil {
		t.Fatalf("ExecuteStream failed: %v", err)
	}
	if result.Stderr != "warn\n" {
		t.Errorf("buffered stderr = %q", result.Stderr)
	}

	found := false
	for _, ev := range sink.Events() {
		if ev.Type == EventStderr && strings.Contains(ev.Data, "warn") {
			found = true
		}
	}
	if !found {
		t.Errorf("no stderr event in %v", sink.types())
	}
}

func TestExecuteStreamBlockedEmitsErrorEvent(t *testing.T) {
	auditSink := audit.NewMemorySink()
	p := testPipeline(auditSink)
	sink := &collectSink{}

	result, err := p.ExecuteStream(context.Background(), Proposal{Command: "rm -rf /"}, Options{}, sink)
	if err != nil {
		t.Fatalf("ExecuteStream failed: %v", err)
	}
	if result.Status != StatusBlocked {
		t.Fatalf("status = %s", result.Status)
	}

	events := sink.Events()
	if len(events) != 1 || events[0].Type != EventError {
		t.Fatalf("events = %v", sink.types())
	}

	entries := auditSink.Entries()
	if len(entries) != 1 || entries[0].Status != "blocked" {
		t.Errorf("audit entries = %+v", entries)
	}
}

func TestExecuteStreamTimeoutEvent(t *testing.T) {
	p := testPipeline(nil)
	sink := &collectSink{}

	result, err := p.ExecuteStream(context.Background(), Proposal{Command: "sleep 10"}, Options{TimeoutMs: 100}, sink)
	if err != nil {
		t.Fatalf("ExecuteStream failed: %v", err)
	}
	if result.Status != StatusTimeout || !result.Killed {
		t.Fatalf("result = %+v", result)
	}

	events := sink.Events()
	last := events[len(events)-1]
	if last.Type != EventTimeout {
		t.Errorf("terminal event = %s, want timeout", last.Type)
	}
	for _, ev := range events {
		if ev.Type == EventComplete {
			t.Error("timeout stream also emitted complete")
		}
	}
}

func TestExecuteStreamDeadSinkDoesNotCancelProcess(t *testing.T) {
	p := testPipeline(nil)
	marker := t.TempDir() + "/done"

	// The sink dies after the start event; the command must still run to
	// completion.
	sink := &collectSink{failAfter: 1}
	result, err := p.ExecuteStream(context.Background(), Proposal{
		Command: "sleep 0.2; touch " + marker + "; echo finished",
	}, Options{}, sink)
	if err != nil {
		t.Fatalf("ExecuteStream failed: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("status = %s", result.Status)
	}
	if result.Stdout != "finished\n" {
		t.Errorf("capture stopped with the sink: %q", result.Stdout)
	}

	if len(sink.Events()) != 1 {
		t.Errorf("dead sink still received events: %v", sink.types())
	}
}

func TestExecuteStreamEmptyCommand(t *testing.T) {
	p := testPipeline(nil)

	_, err := p.ExecuteStream(context.Background(), Proposal{Command: ""}, Options{}, &collectSink{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestExecuteStreamDefaultTimeoutIsGenerous(t *testing.T) {
	// The streaming default must allow commands that outlive the blocking
	// default; this just pins the constant relationship.
	if DefaultStreamTimeout <= DefaultConfig().DefaultTimeout {
		t.Errorf("stream default %v not above blocking default %v",
			DefaultStreamTimeout, DefaultConfig().DefaultTimeout)
	}
}
