package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"symptom-chatbot/internal/core"
	"symptom-chatbot/pkg"
)

// Repository stores conversation snapshots in a SQL database. It implements
// core.Store.
type Repository struct {
	DB       *sql.DB
	Notifier *Notifier // optional, Postgres only
}

var _ core.Store = (*Repository)(nil)

// NewRepository constructs a new Repository from an existing sql.DB.
// The caller is responsible for managing the DB connection lifecycle.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// SaveConversation upserts the conversation row and rewrites its messages in
// one transaction.
func (r *Repository) SaveConversation(ctx context.Context, ownerID string, c *pkg.Conversation) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (id, owner_id, title, state, age, language, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
         ON CONFLICT (id) DO UPDATE SET
             owner_id = excluded.owner_id,
             title = excluded.title,
             state = excluded.state,
             age = excluded.age,
             language = excluded.language,
             updated_at = excluded.updated_at`,
		c.ID, ownerID, c.Title, string(c.State), c.Age, c.Language, c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert conversation %s: %w", c.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM conversation_messages WHERE conversation_id = $1`, c.ID); err != nil {
		return fmt.Errorf("clear messages of %s: %w", c.ID, err)
	}
	for i, m := range c.Messages {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO conversation_messages (conversation_id, position, role, content, created_at)
             VALUES ($1, $2, $3, $4, $5)`,
			c.ID, i, string(m.Role), m.Content, m.Timestamp.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert message %d of %s: %w", i, c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if r.Notifier != nil {
		if err := r.Notifier.Notify(ctx, c.ID); err != nil {
			return fmt.Errorf("notify %s: %w", c.ID, err)
		}
	}
	return nil
}

// LoadConversation returns the stored snapshot, or core.ErrConversationNotFound.
func (r *Repository) LoadConversation(ctx context.Context, id string) (*pkg.Conversation, error) {
	var c pkg.Conversation
	var state string
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, owner_id, title, state, age, language, created_at, updated_at
         FROM conversations
         WHERE id = $1`, id,
	).Scan(&c.ID, &c.OwnerID, &c.Title, &state, &c.Age, &c.Language, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrConversationNotFound
		}
		return nil, err
	}
	c.State = pkg.State(state)

	msgs, err := r.messages(ctx,
		`SELECT conversation_id, role, content, created_at
         FROM conversation_messages
         WHERE conversation_id = $1
         ORDER BY position ASC`, id)
	if err != nil {
		return nil, err
	}
	c.Messages = msgs[id]
	if c.Messages == nil {
		c.Messages = []pkg.Message{}
	}
	return &c, nil
}

// ListConversations returns the owner's conversations, most recently updated
// first.
func (r *Repository) ListConversations(ctx context.Context, ownerID string) ([]pkg.Conversation, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, owner_id, title, state, age, language, created_at, updated_at
         FROM conversations
         WHERE owner_id = $1
         ORDER BY updated_at DESC, id ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []pkg.Conversation
	for rows.Next() {
		var c pkg.Conversation
		var state string
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Title, &state, &c.Age, &c.Language, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.State = pkg.State(state)
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return convs, nil
	}

	msgs, err := r.messages(ctx,
		`SELECT m.conversation_id, m.role, m.content, m.created_at
         FROM conversation_messages m
         JOIN conversations c ON c.id = m.conversation_id
         WHERE c.owner_id = $1
         ORDER BY m.conversation_id, m.position ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range convs {
		convs[i].Messages = msgs[convs[i].ID]
		if convs[i].Messages == nil {
			convs[i].Messages = []pkg.Message{}
		}
	}
	return convs, nil
}

// DeleteConversationsBefore removes conversations not updated since cutoff
// and returns how many were deleted. Messages go with them.
func (r *Repository) DeleteConversationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	// SQLite only cascades when foreign_keys is on for the connection.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM conversation_messages
         WHERE conversation_id IN (SELECT id FROM conversations WHERE updated_at < $1)`, cutoff.UTC()); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE updated_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// messages groups the rows of a message query by conversation id.
func (r *Repository) messages(ctx context.Context, query string, args ...any) (map[string][]pkg.Message, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]pkg.Message)
	for rows.Next() {
		var id, role string
		var m pkg.Message
		if err := rows.Scan(&id, &role, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Role = pkg.MessageRole(role)
		out[id] = append(out[id], m)
	}
	return out, rows.Err()
}
