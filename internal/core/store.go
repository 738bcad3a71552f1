package core

import (
	"context"
	"errors"

	"symptom-chatbot/pkg"
)

// ErrConversationNotFound is returned by a Store that holds no record for an id.
var ErrConversationNotFound = errors.New("conversation not found")

// Store mirrors conversations outside the process. The in-memory Manager
// stays the source of truth; a Store is written after every mutation and read
// only to rehydrate ids the Manager does not hold.
type Store interface {
	LoadConversation(ctx context.Context, id string) (*pkg.Conversation, error)
	SaveConversation(ctx context.Context, ownerID string, c *pkg.Conversation) error
	ListConversations(ctx context.Context, ownerID string) ([]pkg.Conversation, error)
}
