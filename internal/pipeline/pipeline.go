// Package pipeline executes approved command proposals under a safety
// envelope: dangerous-pattern filtering, approval gating, timeout-bounded
// process execution with graceful-then-forceful termination, and audit
// recording on every attempt.
//
// State machine per execution:
//
//	pending -> {blocked | awaiting_approval | dry_run_ok | running}
//	running -> {success | error | timeout}
//
// running -> timeout only via the timer; running -> success|error only via
// process exit. No transition re-enters running (no retry at this layer).
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"aegis/internal/audit"
	"aegis/internal/guard"
)

// Status is the terminal state of one execution attempt.
type Status string

const (
	StatusSuccess          Status = "success"
	StatusError            Status = "error"
	StatusTimeout          Status = "timeout"
	StatusBlocked          Status = "blocked"
	StatusApprovalRequired Status = "approval_required"
	StatusDryRunOK         Status = "dry_run_ok"
)

// Proposal is a candidate shell command plus metadata. Consumed once,
// never mutated, not persisted beyond the audit log.
type Proposal struct {
	Command          string `json:"command"`
	Reasoning        string `json:"reasoning,omitempty"`
	RequiresApproval bool   `json:"requiresApproval,omitempty"`
	WorkingDir       string `json:"cwd,omitempty"`
	TimeoutMs        int64  `json:"timeoutMs,omitempty"`
}

// Options control one execution attempt.
type Options struct {
	AutoApprove bool
	DryRun      bool
	TimeoutMs   int64
}

// Result describes a completed (or gated) execution attempt. ExitCode is
// nil when no process exited.
type Result struct {
	Status   Status        `json:"status"`
	ExitCode *int          `json:"exitCode"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Duration time.Duration `json:"-"`
	Killed   bool          `json:"killed"`
	Message  string        `json:"message,omitempty"`
}

// MarshalJSON emits the duration as whole milliseconds under durationMs.
// The in-memory representation stays a time.Duration.
func (r Result) MarshalJSON() ([]byte, error) {
	type wire Result
	return json.Marshal(struct {
		wire
		DurationMs int64 `json:"durationMs"`
	}{wire(r), r.Duration.Milliseconds()})
}

// UnmarshalJSON is the inverse: durationMs on the wire, time.Duration in
// memory.
func (r *Result) UnmarshalJSON(data []byte) error {
	type wire Result
	var w struct {
		wire
		DurationMs int64 `json:"durationMs"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Result(w.wire)
	r.Duration = time.Duration(w.DurationMs) * time.Millisecond
	return nil
}

// ValidationError reports a malformed proposal.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid proposal: " + e.Reason
}

// Config tunes the pipeline's envelope.
type Config struct {
	// DefaultTimeout bounds blocking executions that specify no timeout.
	DefaultTimeout time.Duration

	// GracePeriod is how long a terminated process gets between SIGTERM
	// and SIGKILL.
	GracePeriod time.Duration

	// MaxOutputBytes caps captured stdout and stderr, each.
	MaxOutputBytes int64
}

// DefaultConfig returns the standard envelope.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout: 60 * time.Second,
		GracePeriod:    5 * time.Second,
		MaxOutputBytes: 10 * 1024 * 1024,
	}
}

// auditTruncateLen bounds stdout/stderr prefixes written to the audit log.
const auditTruncateLen = 500

// Pipeline runs command proposals. One spawned process per call, no
// pooling or reuse.
type Pipeline struct {
	config Config
	sink   audit.Sink
	logger *zap.Logger
}

// NewPipeline creates a pipeline with the default envelope.
func NewPipeline(sink audit.Sink, logger *zap.Logger) *Pipeline {
	return NewPipelineWithConfig(DefaultConfig(), sink, logger)
}

// NewPipelineWithConfig creates a pipeline with a custom envelope.
func NewPipelineWithConfig(config Config, sink audit.Sink, logger *zap.Logger) *Pipeline {
	if sink == nil {
		sink = audit.NopSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = DefaultConfig().DefaultTimeout
	}
	if config.GracePeriod <= 0 {
		config.GracePeriod = DefaultConfig().GracePeriod
	}
	if config.MaxOutputBytes <= 0 {
		config.MaxOutputBytes = DefaultConfig().MaxOutputBytes
	}
	return &Pipeline{config: config, sink: sink, logger: logger}
}

// Execute runs a proposal to completion and returns the buffered result.
func (p *Pipeline) Execute(ctx context.Context, prop Proposal, opts Options) (*Result, error) {
	command := strings.TrimSpace(prop.Command)
	if command == "" {
		return nil, &ValidationError{Reason: "command is empty"}
	}

	if gated := p.gate(prop, opts, command); gated != nil {
		return gated, nil
	}

	timeout := p.timeoutFor(prop, opts, p.config.DefaultTimeout)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = prop.WorkingDir
	cmd.Env = os.Environ()
	cmd.Stdout = &limitedWriter{w: &stdoutBuf, max: p.config.MaxOutputBytes}
	cmd.Stderr = &limitedWriter{w: &stderrBuf, max: p.config.MaxOutputBytes}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		result := &Result{
			Status:  StatusError,
			Message: "failed to start: " + err.Error(),
		}
		p.record(prop, result)
		return result, nil
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	result := p.await(ctx, cmd, done, timeout)
	result.Duration = time.Since(start)
	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()

	p.logger.Debug("command finished",
		zap.String("command", command),
		zap.String("status", string(result.Status)),
		zap.Duration("duration", result.Duration))

	p.record(prop, result)
	return result, nil
}

// gate applies the dangerous-pattern filter, the approval gate, and dry
// run, in that order. A non-nil result means the attempt never spawned.
func (p *Pipeline) gate(prop Proposal, opts Options, command string) *Result {
	if guard.IsDangerous(command) {
		p.logger.Warn("command blocked by dangerous-pattern filter", zap.String("command", command))
		result := &Result{Status: StatusBlocked, Message: "command matched dangerous pattern"}
		p.sink.Record(audit.Entry{
			Timestamp: time.Now(),
			Status:    string(StatusBlocked),
			Command:   prop.Command,
			Reasoning: prop.Reasoning,
			Message:   result.Message,
		})
		return result
	}

	if prop.RequiresApproval && !opts.AutoApprove {
		result := &Result{Status: StatusApprovalRequired, Message: "approval required before execution"}
		p.record(prop, result)
		return result
	}

	if opts.DryRun {
		result := &Result{Status: StatusDryRunOK, Message: "dry run: command validated, not executed"}
		if err := checkShellSyntax(command); err != nil {
			result.Status = StatusError
			result.Message = "dry run: " + err.Error()
		}
		p.record(prop, result)
		return result
	}

	return nil
}

// await waits for process exit, the timeout, or caller cancellation.
func (p *Pipeline) await(ctx context.Context, cmd *exec.Cmd, done chan error, timeout time.Duration) *Result {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return resultFromExit(err)

	case <-timer.C:
		err := p.terminate(cmd.Process, done)
		result := resultFromExit(err)
		result.Status = StatusTimeout
		result.Killed = true
		result.Message = "timed out after " + timeout.String()
		return result

	case <-ctx.Done():
		err := p.terminate(cmd.Process, done)
		result := resultFromExit(err)
		result.Status = StatusError
		result.Killed = true
		result.Message = "canceled: " + ctx.Err().Error()
		return result
	}
}

// terminate escalates SIGTERM -> SIGKILL with the configured grace
// period, then drains the wait channel. The ErrProcessDone checks guard
// the race where the process exits between the two signals.
func (p *Pipeline) terminate(proc *os.Process, done chan error) error {
	if err := proc.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		// Graceful signal unsupported or failed; skip straight to kill.
		_ = proc.Kill()
		return <-done
	}

	select {
	case err := <-done:
		return err
	case <-time.After(p.config.GracePeriod):
	}

	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Warn("forceful kill failed", zap.Error(err))
	}
	return <-done
}

// resultFromExit maps a wait error to exit status.
func resultFromExit(err error) *Result {
	if err == nil {
		code := 0
		return &Result{Status: StatusSuccess, ExitCode: &code}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		result := &Result{Status: StatusError, ExitCode: &code}
		if code < 0 {
			// Killed by signal; no meaningful exit code.
			result.ExitCode = nil
		}
		return result
	}
	return &Result{Status: StatusError, Message: err.Error()}
}

// record writes the audit entry for a completed or gated attempt.
func (p *Pipeline) record(prop Proposal, result *Result) {
	p.sink.Record(audit.Entry{
		Timestamp: time.Now(),
		Status:    string(result.Status),
		Command:   prop.Command,
		Reasoning: prop.Reasoning,
		Stdout:    truncate(result.Stdout, auditTruncateLen),
		Stderr:    truncate(result.Stderr, auditTruncateLen),
		Message:   result.Message,
	})
}

// timeoutFor resolves the effective timeout: options override the
// proposal, which overrides the fallback.
func (p *Pipeline) timeoutFor(prop Proposal, opts Options, fallback time.Duration) time.Duration {
	if opts.TimeoutMs > 0 {
		return time.Duration(opts.TimeoutMs) * time.Millisecond
	}
	if prop.TimeoutMs > 0 {
		return time.Duration(prop.TimeoutMs) * time.Millisecond
	}
	return fallback
}

// checkShellSyntax is the dry-run validation: cheap structural checks,
// not a full shell parse.
func checkShellSyntax(command string) error {
	var single, double bool
	for _, r := range command {
		switch r {
		case '\'':
			if !double {
				single = !single
			}
		case '"':
			if !single {
				double = !double
			}
		}
	}
	if single || double {
		return errors.New("unterminated quote")
	}
	return nil
}

// truncate bounds s to max bytes for audit entries.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// limitedWriter caps total bytes written, silently discarding overflow so
// a chatty process cannot exhaust memory.
type limitedWriter struct {
	w       *bytes.Buffer
	max     int64
	written int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if lw.written >= lw.max {
		return n, nil
	}
	remaining := lw.max - lw.written
	if int64(n) > remaining {
		p = p[:remaining]
	}
	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return n, err
}
