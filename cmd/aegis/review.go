package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aegis/internal/warroom"
)

// newReviewCmd runs a code change through the war room and prints the
// verdict. Rejection exits non-zero so the command composes in scripts.
func newReviewCmd() *cobra.Command {
	var (
		proposal    string
		contextInfo string
	)

	cmd := &cobra.Command{
		Use:   "review [file]",
		Short: "Run an adversarial quality review over a code file",
		Args:  cobra.ExactArgs(1),
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

			code, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			if proposal == "" {
				proposal = fmt.Sprintf("Review the contents of %s", args[0])
			}

			llm := newProvider(cfg, logger)
			wf := warroom.NewWorkflow(llm, logger)

			verdict, err := wf.Run(context.Background(), proposal, string(code), contextInfo)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), verdict.Summary)
			if !verdict.Approved() {
				return fmt.Errorf("review verdict: %s", verdict.Verdict)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&proposal, "proposal", "", "what the code is meant to accomplish")
	cmd.Flags().StringVar(&contextInfo, "context", "", "extra project context for the reviewers")

	return cmd
}
