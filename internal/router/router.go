// Package router classifies user input and dispatches a structured model
// call against the selected agent's contract. Classification is two
// stage: a keyword fast path over registered trigger phrases, then a
// model-assisted fallback constrained to the closed agent set.
package router

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"aegis/internal/memory"
	"aegis/internal/provider"
	"aegis/internal/schema"
)

// ContextSource yields hydrated conversational context for dispatch.
// *memory.Manager satisfies it.
type ContextSource interface {
	HydratedContext() memory.HydratedContext
}

// Response is a routed result: the agent that handled the input and its
// contract-validated payload. Payloads for non-default agents pass
// through opaque; Default decodes the base contract.
type Response struct {
	Agent   schema.Agent
	Payload json.RawMessage
}

// Default decodes the payload as the base agent contract. Only valid when
// Agent is schema.AgentDefault.
func (r *Response) Default() (*schema.AgentResponse, error) {
	var out schema.AgentResponse
	if err := json.Unmarshal(r.Payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// agentTriggers binds one agent to its trigger phrases.
type agentTriggers struct {
	agent    schema.Agent
	triggers []string
}

// keywordTriggers is scanned in declaration order; the first agent with a
// matching phrase wins. Order is the documented tie-break, so append new
// agents at the end rather than reordering.
var keywordTriggers = []agentTriggers{
	{schema.AgentScaffold, []string{"scaffold", "new project", "boilerplate", "project skeleton"}},
	{schema.AgentFileOp, []string{"create file", "delete file", "rename file", "move file", "write file"}},
	{schema.AgentAnalyze, []string{"analyze", "analyse", "code quality", "review this code", "code review"}},
	{schema.AgentTest, []string{"write tests", "unit test", "test coverage", "add tests"}},
	{schema.AgentDocs, []string{"documentation", "write docs", "readme", "document this"}},
}

// Sampling temperatures. Keyword dispatch is moderate; classification is
// near-deterministic.
const (
	dispatchTemperature = 0.7
	classifyTemperature = 0.1
)

const classifyInstruction = "Classify the user request and recommend exactly one agent " +
	"from the allowed set. Use default for anything conversational or ambiguous."

// Router routes inputs to agent dispatches.
type Router struct {
	llm    provider.Client
	memory ContextSource
	logger *zap.Logger
}

// NewRouter creates a router reading context from mem.
func NewRouter(llm provider.Client, mem ContextSource, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{llm: llm, memory: mem, logger: logger}
}

// Route selects an agent for input and performs the dispatch call. On any
// propagated error it retries once against the default agent before
// giving up.
func (r *Router) Route(ctx context.Context, input string) (*Response, error) {
	contextBlock := r.memory.HydratedContext().String()

	agent, matched := matchKeyword(input)
	if matched {
		r.logger.Debug("keyword fast path", zap.String("agent", string(agent)))
		resp, err := r.dispatch(ctx, agent, input, contextBlock, dispatchTemperature)
		if err == nil {
			return resp, nil
		}
		return r.retryDefault(ctx, input, contextBlock, err)
	}

	agent, err := r.classify(ctx, input, contextBlock)
	if err != nil {
		return r.retryDefault(ctx, input, contextBlock, err)
	}

	resp, err := r.dispatch(ctx, agent, input, contextBlock, dispatchTemperature)
	if err != nil {
		return r.retryDefault(ctx, input, contextBlock, err)
	}
	return resp, nil
}

// matchKeyword scans the trigger table in declaration order.
func matchKeyword(input string) (schema.Agent, bool) {
	lower := strings.ToLower(input)
	for _, entry := range keywordTriggers {
		for _, trigger := range entry.triggers {
			if strings.Contains(lower, trigger) {
				return entry.agent, true
			}
		}
	}
	return schema.AgentDefault, false
}

// classify issues the model-assisted classification call. An agent name
// outside the registry cannot normally occur given the enum-constrained
// contract, but the lookup defends with default anyway.
func (r *Router) classify(ctx context.Context, input, contextBlock string) (schema.Agent, error) {
	var classification schema.IntentClassification
	err := r.llm.CompleteStructured(ctx, provider.Request{
		System:      classifyInstruction,
		Prompt:      input,
		Context:     contextBlock,
		Temperature: classifyTemperature,
	}, schema.IntentClassificationContract(), &classification)
	if err != nil {
		return schema.AgentDefault, err
	}

	agent, ok := schema.AgentFromName(classification.RecommendedAgent)
	if !ok {
		r.logger.Warn("classification named unknown agent, using default",
			zap.String("agent", classification.RecommendedAgent))
		agent = schema.AgentDefault
	}
	r.logger.Debug("classified input",
		zap.String("agent", string(agent)),
		zap.String("confidence", classification.Confidence),
		zap.String("reasoning", classification.Reasoning))
	return agent, nil
}

// dispatch performs the final structured call against the agent's
// contract. The hydrated context travels as side-channel information, not
// as part of the user-visible prompt.
func (r *Router) dispatch(ctx context.Context, agent schema.Agent, input, contextBlock string, temperature float64) (*Response, error) {
	var payload json.RawMessage
	err := r.llm.CompleteStructured(ctx, provider.Request{
		Prompt:      input,
		Context:     contextBlock,
		Temperature: temperature,
	}, schema.ContractFor(agent), &payload)
	if err != nil {
		return nil, err
	}
	return &Response{Agent: agent, Payload: payload}, nil
}

// retryDefault is the last-resort path: one attempt against the default
// contract before the original error propagates.
func (r *Router) retryDefault(ctx context.Context, input, contextBlock string, cause error) (*Response, error) {
	r.logger.Warn("dispatch failed, retrying against default agent", zap.Error(cause))
	resp, err := r.dispatch(ctx, schema.AgentDefault, input, contextBlock, dispatchTemperature)
	if err != nil {
		return nil, cause
	}
	return resp, nil
}
