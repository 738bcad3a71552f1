package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Factory builds a provider on first use.
type Factory func(ctx context.Context) (Provider, error)

// Selector keeps exactly one active backend. The backend instance is built
// lazily and cached; Switch discards the cache so the newly selected backend
// is built on next use.
type Selector struct {
	factories map[string]Factory
	logger    *slog.Logger

	mu      sync.Mutex
	active  string
	current Provider
}

var _ Provider = (*Selector)(nil)

// NewSelector returns a selector over the given factories with active as the
// initially selected backend.
func NewSelector(active string, factories map[string]Factory, logger *slog.Logger) (*Selector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, ok := factories[active]; !ok {
		return nil, fmt.Errorf("unknown provider: %s (available: %v)", active, sortedNames(factories))
	}
	return &Selector{factories: factories, active: active, logger: logger}, nil
}

// Name returns the active provider name.
func (s *Selector) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// IsAvailable reports the availability of the active backend, building it
// without a request context. Prefer IsAvailableContext inside a request.
func (s *Selector) IsAvailable() bool {
	return s.IsAvailableContext(context.Background())
}

// IsAvailableContext builds the active backend with ctx if needed and reports
// its availability.
func (s *Selector) IsAvailableContext(ctx context.Context) bool {
	p, err := s.provider(ctx)
	return err == nil && p.IsAvailable()
}

// Generate delegates to the active backend.
func (s *Selector) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	p, err := s.provider(ctx)
	if err != nil {
		return "", err
	}
	if !p.IsAvailable() {
		return "", unavailable(p.Name())
	}
	return p.Generate(ctx, prompt, systemPrompt)
}

// Switch selects another backend and drops the cached instance.
func (s *Selector) Switch(name string) error {
	if _, ok := s.factories[name]; !ok {
		return fmt.Errorf("unknown provider: %s (available: %v)", name, sortedNames(s.factories))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = name
	s.current = nil
	s.logger.Info("switched model provider", "provider", name)
	return nil
}

// Providers lists every known backend name.
func (s *Selector) Providers() []string {
	return sortedNames(s.factories)
}

// Available lists the backends that are configured. Each is built in
// isolation and not cached.
func (s *Selector) Available(ctx context.Context) []string {
	var out []string
	for _, name := range sortedNames(s.factories) {
		p, err := s.factories[name](ctx)
		if err != nil {
			continue
		}
		if p.IsAvailable() {
			out = append(out, name)
		}
	}
	return out
}

func (s *Selector) provider(ctx context.Context) (Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return s.current, nil
	}
	p, err := s.factories[s.active](ctx)
	if err != nil {
		s.logger.Error("failed to initialize model provider", "provider", s.active, "error", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, s.active, err)
	}
	s.current = p
	return p, nil
}

func sortedNames(factories map[string]Factory) []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
