package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"aegis/internal/memory"
	"aegis/internal/router"
	"aegis/internal/schema"
	"aegis/internal/session"
)

// newChatCmd sends one user message through the router and prints the
// agent response. Conversation state lives in the session store; pass
// --session to continue an earlier conversation.
func newChatCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Route a message to the best agent and print the response",
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

			llm := newProvider(cfg, logger)
			store, err := newSessionStore(cfg, llm, logger)
			if err != nil {
				return err
			}

			created := false
			var sess *session.Session
			if sessionID != "" {
				sess, err = store.Get(sessionID)
				if err != nil {
					return fmt.Errorf("session %s: %w", sessionID, err)
				}
			} else {
				sess = store.Create()
				created = true
			}

			sess.Lock()
			defer sess.Unlock()

			input := strings.Join(args, " ")
			ctx := context.Background()

			// Route against the context of prior turns, then record the
			// exchange. Recording first would duplicate the input: it
			// already travels as the dispatch prompt.
			r := router.NewRouter(llm, sess.Memory, logger)
			resp, err := r.Route(ctx, input)
			if err != nil {
				return err
			}

			sess.Memory.AddInteraction(ctx, memory.RoleUser, input)
			rendered, recall := renderResponse(resp)
			sess.Memory.AddInteraction(ctx, memory.RoleAssistant, recall)

			if err := store.Save(sess); err != nil {
				return fmt.Errorf("failed to persist session: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), rendered)
			if created {
				fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", sess.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session to continue (default: start a new one)")
	return cmd
}

// renderResponse formats the routed payload for the terminal and
// returns a compact form for the conversation history.
func renderResponse(resp *router.Response) (rendered, recall string) {
	if resp.Agent == schema.AgentDefault {
		agent, err := resp.Default()
		if err == nil {
			var b strings.Builder
			if agent.Response != "" {
				b.WriteString(agent.Response)
			}
			if agent.Code != "" {
				fmt.Fprintf(&b, "\n\n```%s\n%s\n```", agent.Language, agent.Code)
			}
			if agent.TerminalCommand != "" {
				fmt.Fprintf(&b, "\n\nProposed command: %s", agent.TerminalCommand)
				if agent.CommandReasoning != "" {
					fmt.Fprintf(&b, "\nReasoning: %s", agent.CommandReasoning)
				}
			}
			for _, q := range agent.Questions {
				fmt.Fprintf(&b, "\n? %s", q)
			}
			out := b.String()
			return out, agent.Response
		}
	}

	// Specialist payloads print as indented JSON.
	var pretty map[string]any
	if err := json.Unmarshal(resp.Payload, &pretty); err == nil {
		data, err := json.MarshalIndent(pretty, "", "  ")
		if err == nil {
			out := fmt.Sprintf("[%s]\n%s", resp.Agent, data)
			return out, fmt.Sprintf("produced a %s plan", resp.Agent)
		}
	}
	return string(resp.Payload), string(resp.Payload)
}
