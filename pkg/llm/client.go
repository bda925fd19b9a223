// Package llm wraps chat completion providers behind a small interface so
// the research pipeline can be exercised with stubs in tests.
package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// CompletionRequest describes a single completion call. Model, APIKey and
// BaseURL override the client defaults when set.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	APIKey      string
	BaseURL     string
}

// Completer produces a single text completion.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Client is a Completer backed by an OpenAI-compatible API.
type Client struct {
	DefaultModel string
	APIKey       string
	BaseURL      string
}

func NewClient(model, apiKey, baseURL string) *Client {
	return &Client{
		DefaultModel: model,
		APIKey:       apiKey,
		BaseURL:      baseURL,
	}
}

func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.DefaultModel
	}
	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = c.APIKey
	}
	baseURL := req.BaseURL
	if baseURL == "" {
		baseURL = c.BaseURL
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	provider, err := openai.New(opts...)
	if err != nil {
		return "", fmt.Errorf("failed to init LLM client: %w", err)
	}

	messages := []llms.MessageContent{}
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	callOpts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.MaxTokens))
	}

	resp, err := provider.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return "", fmt.Errorf("llm generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}

	return resp.Choices[0].Content, nil
}
