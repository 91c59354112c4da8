package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// newStatusCmd reports memory pressure for a stored session, or lists
// stored sessions when none is named.
func newStatusCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show rolling memory status for a session",
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

			store, err := newSessionStore(cfg, nil, logger)
			if err != nil {
				return err
			}

			if sessionID == "" {
				ids := store.List()
				if len(ids) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
					return nil
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			}

			sess, err := store.Get(sessionID)
			if err != nil {
				return fmt.Errorf("session %s: %w", sessionID, err)
			}

			data, err := json.MarshalIndent(sess.Memory.Status(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session to inspect (default: list sessions)")
	return cmd
}
