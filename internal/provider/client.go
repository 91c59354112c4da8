// Package provider adapts a remote language-model completion service.
// It sends a prompt plus an optional JSON-schema contract; the remote
// service validates structured responses against the schema's shape, so
// the payload handed back here is already shape-conformant.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"aegis/internal/schema"
)

// Request carries one completion request. Context is background
// information (hydrated memory, prior findings) injected on the system
// side of the call, separate from the user-visible prompt.
type Request struct {
	System      string
	Prompt      string
	Context     string
	Temperature float64
	MaxTokens   int
}

// Client is the completion provider contract consumed by the memory
// manager, the router, and the war room.
type Client interface {
	// Complete returns free-form completion text.
	Complete(ctx context.Context, req Request) (string, error)

	// CompleteStructured requests a completion constrained to the given
	// contract and unmarshals the result into out.
	CompleteStructured(ctx context.Context, req Request, contract schema.Contract, out any) error
}

// Config holds HTTP client settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Retry   RetryPolicy
}

// DefaultConfig returns sensible defaults for an OpenAI-compatible
// chat-completions endpoint.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:  apiKey,
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
		Timeout: 120 * time.Second,
		Retry:   DefaultRetryPolicy(),
	}
}

// HTTPClient implements Client against an OpenAI-compatible
// chat-completions API with strict JSON-schema response formats.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	retry      RetryPolicy
}

// NewHTTPClient creates a client with default config.
func NewHTTPClient(apiKey string) *HTTPClient {
	return NewHTTPClientWithConfig(DefaultConfig(apiKey))
}

// NewHTTPClientWithConfig creates a client with custom config.
func NewHTTPClientWithConfig(config Config) *HTTPClient {
	return &HTTPClient{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		retry: config.Retry,
	}
}

// chatRequest is the API request structure.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// chatMessage is one message in the conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// responseFormat requests schema-validated structured output.
type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

// jsonSchema names a schema for strict validation.
type jsonSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// chatResponse is the API response structure.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Complete sends a prompt and returns the completion text.
func (c *HTTPClient) Complete(ctx context.Context, req Request) (string, error) {
	return c.complete(ctx, req, nil)
}

// CompleteStructured sends a prompt constrained to a contract and decodes
// the validated payload into out.
func (c *HTTPClient) CompleteStructured(ctx context.Context, req Request, contract schema.Contract, out any) error {
	format, err := buildResponseFormat(contract)
	if err != nil {
		return err
	}

	content, err := c.complete(ctx, req, format)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(content), out); err != nil {
		// The remote validated the shape; a decode failure here means the
		// payload disagrees with the contract. Terminal, never retried.
		return &Error{Message: fmt.Sprintf("malformed %s payload: %v", contract.Name, err)}
	}
	return nil
}

// buildResponseFormat converts a contract into the API's strict
// json_schema response format.
func buildResponseFormat(contract schema.Contract) (*responseFormat, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(contract.Raw), &raw); err != nil {
		return nil, fmt.Errorf("contract %s: invalid schema: %w", contract.Name, err)
	}
	return &responseFormat{
		Type: "json_schema",
		JSONSchema: &jsonSchema{
			Name:   contract.Name,
			Strict: true,
			Schema: raw,
		},
	}, nil
}

// complete issues the HTTP call under the retry policy.
func (c *HTTPClient) complete(ctx context.Context, req Request, format *responseFormat) (string, error) {
	if c.apiKey == "" {
		return "", &Error{Message: "API key not configured"}
	}

	messages := make([]chatMessage, 0, 3)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	if req.Context != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.Context})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	body := chatRequest{
		Model:          c.model,
		Messages:       messages,
		MaxTokens:      maxTokens,
		Temperature:    req.Temperature,
		ResponseFormat: format,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var content string
	err = c.retry.Do(ctx, func() error {
		result, callErr := c.doCall(ctx, payload)
		if callErr != nil {
			return callErr
		}
		content = result
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// doCall performs a single HTTP round trip.
func (c *HTTPClient) doCall(ctx context.Context, payload []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", newTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newTransportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", newStatusError(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &Error{Message: fmt.Sprintf("failed to parse response: %v", err)}
	}
	if parsed.Error != nil {
		return "", &Error{Message: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 {
		return "", &Error{Message: "no completion returned"}
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// SetModel changes the model used for completions.
func (c *HTTPClient) SetModel(model string) {
	c.model = model
}

// GetModel returns the current model.
func (c *HTTPClient) GetModel() string {
	return c.model
}
