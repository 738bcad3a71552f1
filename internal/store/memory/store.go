// Package memory is a process-local conversation mirror, used when no
// database is configured and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"symptom-chatbot/internal/core"
	"symptom-chatbot/pkg"
)

type Store struct {
	mu            sync.RWMutex
	conversations map[string]pkg.Conversation
}

var _ core.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		conversations: make(map[string]pkg.Conversation),
	}
}

func (s *Store) SaveConversation(_ context.Context, ownerID string, c *pkg.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := clone(*c)
	cp.OwnerID = ownerID
	s.conversations[c.ID] = cp
	return nil
}

func (s *Store) LoadConversation(_ context.Context, id string) (*pkg.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, core.ErrConversationNotFound
	}
	cp := clone(c)
	return &cp, nil
}

func (s *Store) ListConversations(_ context.Context, ownerID string) ([]pkg.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []pkg.Conversation
	for _, c := range s.conversations {
		if c.OwnerID == ownerID {
			result = append(result, clone(c))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func clone(c pkg.Conversation) pkg.Conversation {
	c.Messages = append([]pkg.Message{}, c.Messages...)
	return c
}
