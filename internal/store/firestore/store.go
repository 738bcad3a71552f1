// Package firestore mirrors conversations into Cloud Firestore, one document
// per conversation with its messages embedded.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"symptom-chatbot/internal/core"
	"symptom-chatbot/pkg"
)

const conversationsCollection = "conversations"

type Store struct {
	client *firestore.Client
}

var _ core.Store = (*Store)(nil)

// NewStore creates a Firestore store for the given project
// (FIRESTORE_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) conversationsCol() *firestore.CollectionRef {
	return s.client.Collection(conversationsCollection)
}

type conversationDoc struct {
	OwnerID   string       `firestore:"owner_id"`
	Title     string       `firestore:"title"`
	State     string       `firestore:"state"`
	Age       string       `firestore:"age"`
	Language  string       `firestore:"language"`
	Messages  []messageDoc `firestore:"messages"`
	CreatedAt time.Time    `firestore:"created_at"`
	UpdatedAt time.Time    `firestore:"updated_at"`
}

type messageDoc struct {
	Role      string    `firestore:"role"`
	Content   string    `firestore:"content"`
	CreatedAt time.Time `firestore:"created_at"`
}

func toDoc(ownerID string, c *pkg.Conversation) conversationDoc {
	doc := conversationDoc{
		OwnerID:   ownerID,
		Title:     c.Title,
		State:     string(c.State),
		Age:       c.Age,
		Language:  c.Language,
		Messages:  make([]messageDoc, 0, len(c.Messages)),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	for _, m := range c.Messages {
		doc.Messages = append(doc.Messages, messageDoc{
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: m.Timestamp,
		})
	}
	return doc
}

func fromDoc(id string, doc conversationDoc) *pkg.Conversation {
	c := &pkg.Conversation{
		ID:        id,
		OwnerID:   doc.OwnerID,
		Title:     doc.Title,
		State:     pkg.State(doc.State),
		Age:       doc.Age,
		Language:  doc.Language,
		Messages:  make([]pkg.Message, 0, len(doc.Messages)),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	for _, m := range doc.Messages {
		c.Messages = append(c.Messages, pkg.Message{
			Role:      pkg.MessageRole(m.Role),
			Content:   m.Content,
			Timestamp: m.CreatedAt,
		})
	}
	return c
}

func (s *Store) SaveConversation(ctx context.Context, ownerID string, c *pkg.Conversation) error {
	_, err := s.conversationsCol().Doc(c.ID).Set(ctx, toDoc(ownerID, c))
	if err != nil {
		return fmt.Errorf("firestore SaveConversation: %w", err)
	}
	return nil
}

func (s *Store) LoadConversation(ctx context.Context, id string) (*pkg.Conversation, error) {
	snap, err := s.conversationsCol().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, core.ErrConversationNotFound
		}
		return nil, fmt.Errorf("firestore LoadConversation: %w", err)
	}

	var doc conversationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore LoadConversation decode: %w", err)
	}
	return fromDoc(id, doc), nil
}

func (s *Store) ListConversations(ctx context.Context, ownerID string) ([]pkg.Conversation, error) {
	q := s.conversationsCol().Where("owner_id", "==", ownerID).OrderBy("updated_at", firestore.Desc)

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []pkg.Conversation
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("firestore ListConversations: %w", err)
		}

		var doc conversationDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode conversationDoc: %w", err)
		}
		out = append(out, *fromDoc(snap.Ref.ID, doc))
	}
	return out, nil
}
