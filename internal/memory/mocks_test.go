package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"aegis/internal/provider"
	"aegis/internal/schema"
)

// stubSummarizer implements provider.Client with canned summaries. Each
// structured call is recorded for assertion.
type stubSummarizer struct {
	mu sync.Mutex

	// Summary text returned on each call; a counter suffix keeps
	// successive summaries distinguishable.
	prefix string

	// Err, when set, fails every structured call.
	Err error

	Calls   int
	Prompts []string
}

func (s *stubSummarizer) Complete(ctx context.Context, req provider.Request) (string, error) {
	return "", fmt.Errorf("unexpected free-form call")
}

func (s *stubSummarizer) CompleteStructured(ctx context.Context, req provider.Request, contract schema.Contract, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls++
	s.Prompts = append(s.Prompts, req.Prompt)
	if s.Err != nil {
		return s.Err
	}

	payload, _ := json.Marshal(schema.SummaryPayload{
		Summary:   fmt.Sprintf("%s #%d", s.prefix, s.Calls),
		Reasoning: "stub",
	})
	return json.Unmarshal(payload, out)
}
