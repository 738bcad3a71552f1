package llm

import (
	"context"
	"sync"
)

// Static is a provider that returns a fixed reply or error. It is used for
// local development and tests.
type Static struct {
	Reply string
	Err   error

	mu      sync.Mutex
	prompts []string
	systems []string
}

var _ Provider = (*Static)(nil)

func (s *Static) Name() string { return "static" }

func (s *Static) IsAvailable() bool { return true }

func (s *Static) Generate(_ context.Context, prompt, systemPrompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.systems = append(s.systems, systemPrompt)
	s.mu.Unlock()

	if s.Err != nil {
		return "", &GenerationError{Provider: s.Name(), Err: s.Err}
	}
	return s.Reply, nil
}

// Calls returns the prompts received so far, in order.
func (s *Static) Calls() (prompts, systems []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...), append([]string(nil), s.systems...)
}
