package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"aegis/internal/pipeline"
)

// newExecCmd runs a shell command through the guarded pipeline.
func newExecCmd() *cobra.Command {
	var (
		cwd         string
		reasoning   string
		timeoutMs   int64
		autoApprove bool
		dryRun      bool
		stream      bool
	)

	cmd := &cobra.Command{
		Use:   "exec [command]",
		Short: "Execute a command through the guarded pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			p, closeAudit, err := newPipeline(cfg, logger)
			if err != nil {
				return err
			}
			defer closeAudit()

			prop := pipeline.Proposal{
				Command:    strings.Join(args, " "),
				Reasoning:  reasoning,
				WorkingDir: cwd,
				TimeoutMs:  timeoutMs,
			}
			opts := pipeline.Options{
				AutoApprove: autoApprove || cfg.Execution.AutoApprove,
				DryRun:      dryRun,
			}

			ctx := context.Background()

			if stream {
				sink := &ndjsonSink{enc: json.NewEncoder(cmd.OutOrStdout())}
				result, err := p.ExecuteStream(ctx, prop, opts, sink)
				if err != nil {
					return err
				}
				return exitFor(result)
			}

			result, err := p.Execute(ctx, prop, opts)
			if err != nil {
				return err
			}
			printResult(cmd, result)
			return exitFor(result)
		},
	}

	cmd.Flags().StringVar(&cwd, "cwd", "", "working directory for the command")
	cmd.Flags().StringVar(&reasoning, "reasoning", "", "why this command should run (recorded in the audit log)")
	cmd.Flags().Int64Var(&timeoutMs, "timeout", 0, "command timeout in milliseconds")
	cmd.Flags().BoolVar(&autoApprove, "yes", false, "approve commands that require approval")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate without executing")
	cmd.Flags().BoolVar(&stream, "stream", false, "emit NDJSON events instead of a final result")

	return cmd
}

// ndjsonSink writes one JSON event per line to the terminal.
type ndjsonSink struct {
	enc *json.Encoder
}

func (s *ndjsonSink) Send(ev pipeline.Event) error {
	return s.enc.Encode(ev)
}

func printResult(cmd *cobra.Command, result *pipeline.Result) {
	out := cmd.OutOrStdout()
	switch result.Status {
	case pipeline.StatusSuccess:
		fmt.Fprint(out, result.Stdout)
	case pipeline.StatusBlocked:
		fmt.Fprintln(out, "BLOCKED:", result.Message)
	case pipeline.StatusApprovalRequired:
		fmt.Fprintln(out, "approval required; re-run with --yes")
	case pipeline.StatusDryRunOK:
		fmt.Fprintln(out, "dry run ok")
	case pipeline.StatusTimeout:
		fmt.Fprintln(out, "timed out:", result.Message)
	default:
		fmt.Fprint(out, result.Stdout)
		fmt.Fprint(cmd.ErrOrStderr(), result.Stderr)
		fmt.Fprintln(cmd.ErrOrStderr(), result.Message)
	}
}

// exitFor maps a non-success outcome onto a command error.
func exitFor(result *pipeline.Result) error {
	switch result.Status {
	case pipeline.StatusSuccess, pipeline.StatusDryRunOK:
		return nil
	case pipeline.StatusError:
		if result.ExitCode != nil {
			return fmt.Errorf("command exited with code %d", *result.ExitCode)
		}
		return fmt.Errorf("command failed: %s", result.Message)
	default:
		return fmt.Errorf("command not run: %s", result.Status)
	}
}
