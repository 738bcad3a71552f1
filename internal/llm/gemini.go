package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// Gemini calls the Gemini API; the system prompt travels as SystemInstruction.
type Gemini struct {
	client    *genai.Client
	modelName string
}

var _ Provider = (*Gemini)(nil)

// NewGemini creates a Gemini provider. Without an API key the provider is
// returned unconfigured and reports itself unavailable.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	if cfg.APIKey == "" {
		return &Gemini{modelName: modelName}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{client: client, modelName: modelName}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) IsAvailable() bool { return g.client != nil }

// Generate implements Provider using GenerateContent.
func (g *Gemini) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	if !g.IsAvailable() {
		return "", unavailable(g.Name())
	}

	temp := float32(0.7)
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), cfg)
	if err != nil {
		return "", &GenerationError{Provider: g.Name(), Err: err}
	}

	text := res.Text()
	if text == "" {
		return "", &GenerationError{Provider: g.Name(), Err: errors.New("empty text")}
	}
	return text, nil
}
