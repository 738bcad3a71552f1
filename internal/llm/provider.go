// Package llm is the model gateway: one capability surface over several
// interchangeable hosted model backends.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Provider is a hosted model backend. Generate performs a single blocking
// prompt to text call; implementations never retry.
type Provider interface {
	// Name returns the provider name used for selection.
	Name() string

	// IsAvailable reports whether the backend is configured.
	IsAvailable() bool

	// Generate sends prompt (and systemPrompt, when non-empty) and returns
	// the reply text.
	Generate(ctx context.Context, prompt, systemPrompt string) (string, error)
}

// ErrProviderUnavailable is returned when the selected backend is not
// configured or cannot be constructed.
var ErrProviderUnavailable = errors.New("model provider unavailable")

// GenerationError wraps the underlying failure of a generate call.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Ready reports whether p can serve a request. Backends built lazily on
// first use are built with ctx.
func Ready(ctx context.Context, p Provider) bool {
	if c, ok := p.(interface{ IsAvailableContext(context.Context) bool }); ok {
		return c.IsAvailableContext(ctx)
	}
	return p.IsAvailable()
}

func unavailable(name string) error {
	return fmt.Errorf("%w: %s", ErrProviderUnavailable, name)
}
