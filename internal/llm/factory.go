package llm

import (
	"context"
	"log/slog"

	"symptom-chatbot/internal/config"
)

// NewSelectorFromConfig wires the openai, gemini and anthropic backends and
// selects cfg.Provider.
func NewSelectorFromConfig(cfg *config.Config, logger *slog.Logger) (*Selector, error) {
	factories := map[string]Factory{
		config.ProviderOpenAI: func(context.Context) (Provider, error) {
			return NewOpenAI(OpenAIConfig{
				APIKey:  cfg.OpenAIAPIKey,
				Model:   cfg.OpenAIModel,
				BaseURL: cfg.OpenAIBaseURL,
			}), nil
		},
		config.ProviderGemini: func(ctx context.Context) (Provider, error) {
			return NewGemini(ctx, GeminiConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel})
		},
		config.ProviderAnthropic: func(context.Context) (Provider, error) {
			return Anthropic{}, nil
		},
	}
	return NewSelector(cfg.Provider, factories, logger)
}
