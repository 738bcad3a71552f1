package llm

import "context"

// Anthropic is a reserved backend. It is listed so it can be selected, but it
// always reports itself unavailable.
type Anthropic struct{}

var _ Provider = Anthropic{}

func (Anthropic) Name() string { return "anthropic" }

func (Anthropic) IsAvailable() bool { return false }

func (a Anthropic) Generate(context.Context, string, string) (string, error) {
	return "", unavailable(a.Name())
}
