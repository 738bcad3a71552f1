// Package bolt mirrors conversations into a single BoltDB file.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"symptom-chatbot/internal/core"
	"symptom-chatbot/pkg"
)

var conversationsBucket = []byte("conversations")

type Store struct {
	db *bolt.DB
}

var _ core.Store = (*Store)(nil)

// Open opens (or creates) the database file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(conversationsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveConversation(_ context.Context, ownerID string, c *pkg.Conversation) error {
	cp := *c
	cp.OwnerID = ownerID
	enc, err := json.Marshal(cp)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(conversationsBucket).Put([]byte(c.ID), enc)
	})
}

func (s *Store) LoadConversation(_ context.Context, id string) (*pkg.Conversation, error) {
	var c pkg.Conversation
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(conversationsBucket).Get([]byte(id))
		if v == nil {
			return core.ErrConversationNotFound
		}
		return json.Unmarshal(v, &c)
	})
	if err != nil {
		return nil, err
	}
	if c.Messages == nil {
		c.Messages = []pkg.Message{}
	}
	return &c, nil
}

func (s *Store) ListConversations(_ context.Context, ownerID string) ([]pkg.Conversation, error) {
	var out []pkg.Conversation
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(conversationsBucket).ForEach(func(k, v []byte) error {
			var c pkg.Conversation
			if e := json.Unmarshal(v, &c); e != nil {
				// Skip malformed
				return nil
			}
			if c.OwnerID == ownerID {
				out = append(out, c)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}
