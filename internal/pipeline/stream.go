package pipeline

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Event types emitted by the streaming variant. These are the wire
// contract for the newline-delimited JSON protocol.
const (
	EventStart    = "start"
	EventStdout   = "stdout"
	EventStderr   = "stderr"
	EventComplete = "complete"
	EventError    = "error"
	EventTimeout  = "timeout"
)

// DefaultStreamTimeout bounds streaming executions that specify none.
const DefaultStreamTimeout = 5 * time.Minute

// Event is one outbound frame. Exactly one of complete, error, or timeout
// terminates a stream; start always comes first.
type Event struct {
	Type      string    `json:"type"`
	Command   string    `json:"command,omitempty"`
	Cwd       string    `json:"cwd,omitempty"`
	Data      string    `json:"data,omitempty"`
	Result    *Result   `json:"result,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ExecuteRequest is the inbound frame a transport decodes before calling
// ExecuteStream.
type ExecuteRequest struct {
	Type      string `json:"type"`
	Command   string `json:"command"`
	Cwd       string `json:"cwd,omitempty"`
	TimeoutMs int64  `json:"timeoutMs,omitempty"`
}

// EventSink is the duplex channel's write side. A Send error marks the
// sink dead; subsequent events are dropped without aborting the process.
type EventSink interface {
	Send(Event) error
}

// eventSender drops events once the sink has failed. The underlying
// process keeps running either way; closing the channel never cancels an
// execution.
type eventSender struct {
	mu     sync.Mutex
	sink   EventSink
	dead   bool
	logger *zap.Logger
}

func (s *eventSender) send(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return
	}
	ev.Timestamp = time.Now()
	if err := s.sink.Send(ev); err != nil {
		s.dead = true
		s.logger.Debug("event sink closed, dropping further output", zap.Error(err))
	}
}

// ExecuteStream runs a proposal with the same gating and termination
// envelope as Execute, but emits stdout/stderr incrementally as events.
// The returned Result matches what the complete event carries.
func (p *Pipeline) ExecuteStream(ctx context.Context, prop Proposal, opts Options, sink EventSink) (*Result, error) {
	sender := &eventSender{sink: sink, logger: p.logger}

	command := strings.TrimSpace(prop.Command)
	if command == "" {
		return nil, &ValidationError{Reason: "command is empty"}
	}

	if gated := p.gate(prop, opts, command); gated != nil {
		sender.send(Event{Type: EventError, Message: gated.Message})
		return gated, nil
	}

	timeout := p.timeoutFor(prop, opts, DefaultStreamTimeout)

	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = prop.WorkingDir
	cmd.Env = os.Environ()

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	var stdoutBuf, stderrBuf bytes.Buffer

	start := time.Now()
	if err := cmd.Start(); err != nil {
		result := &Result{
			Status:  StatusError,
			Message: "failed to start: " + err.Error(),
		}
		sender.send(Event{Type: EventError, Message: result.Message})
		p.record(prop, result)
		return result, nil
	}

	sender.send(Event{Type: EventStart, Command: command, Cwd: prop.WorkingDir})

	var g errgroup.Group
	g.Go(func() error {
		return p.pump(stdoutPipe, &stdoutBuf, EventStdout, sender)
	})
	g.Go(func() error {
		return p.pump(stderrPipe, &stderrBuf, EventStderr, sender)
	})

	// Wait must not run until both pipes are drained.
	done := make(chan error, 1)
	go func() {
		_ = g.Wait()
		done <- cmd.Wait()
	}()

	result := p.await(ctx, cmd, done, timeout)
	result.Duration = time.Since(start)
	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()

	switch result.Status {
	case StatusTimeout:
		sender.send(Event{Type: EventTimeout, Message: result.Message})
	default:
		sender.send(Event{Type: EventComplete, Result: result})
	}

	p.record(prop, result)
	return result, nil
}

// pump copies one pipe into the capture buffer and the event stream until
// EOF. Capture is capped; events always carry the full chunk.
func (p *Pipeline) pump(r io.Reader, buf *bytes.Buffer, eventType string, sender *eventSender) error {
	capped := &limitedWriter{w: buf, max: p.config.MaxOutputBytes}
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			_, _ = capped.Write(chunk[:n])
			sender.send(Event{Type: eventType, Data: string(chunk[:n])})
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
