package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the OpenAI backend.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string // optional, for proxies and tests
}

// OpenAI calls the chat completion API with a system + user message pair.
type OpenAI struct {
	client *openai.Client
	apiKey string
	model  string
}

var _ Provider = (*OpenAI)(nil)

// NewOpenAI constructs an OpenAI-backed provider. A missing API key yields a
// provider that reports itself unavailable.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	model := cfg.Model
	if model == "" {
		// default to a modern small model; can be overridden via env
		model = "gpt-4o-mini"
	}
	if cfg.APIKey == "" {
		return &OpenAI{model: model}
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(oc),
		apiKey: cfg.APIKey,
		model:  model,
	}
}

func (c *OpenAI) Name() string { return "openai" }

func (c *OpenAI) IsAvailable() bool {
	return c.client != nil && c.apiKey != ""
}

// Generate sends the prompt to the chat completion endpoint and returns the
// first choice.
func (c *OpenAI) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	if !c.IsAvailable() {
		return "", unavailable(c.Name())
	}

	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: 0.7,
	})
	if err != nil {
		return "", &GenerationError{Provider: c.Name(), Err: err}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &GenerationError{Provider: c.Name(), Err: errors.New("empty completion")}
	}
	return resp.Choices[0].Message.Content, nil
}
