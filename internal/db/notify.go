package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Notifier wraps the LISTEN/NOTIFY mechanism in PostgreSQL. The repository
// notifies after each save so dashboards can follow conversations as they
// change.
type Notifier struct {
	DB      *sql.DB
	Channel string
}

// NewNotifier constructs a new Notifier. The channel should match the
// POSTGRES_NOTIFY_CHANNEL environment variable.
func NewNotifier(db *sql.DB, channel string) *Notifier {
	return &Notifier{DB: db, Channel: channel}
}

// Notify sends the conversation id on the channel.
func (n *Notifier) Notify(ctx context.Context, conversationID string) error {
	_, err := n.DB.ExecContext(ctx, `SELECT pg_notify($1, $2)`, n.Channel, conversationID)
	return err
}

// Listen opens a dedicated connection to dsn and yields conversation ids as
// they are notified on the channel. The returned channel is closed when ctx
// is done.
func Listen(ctx context.Context, dsn, channel string, logger *slog.Logger) (<-chan string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	listener := pq.NewListener(dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("notification listener event", "event", int(ev), "error", err)
		}
	})
	if err := listener.Listen(channel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen %s: %w", pq.QuoteIdentifier(channel), err)
	}

	ids := make(chan string)
	go func() {
		defer func() {
			_ = listener.Close()
			close(ids)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case note := <-listener.Notify:
				// nil after a reconnect; notifications may have been missed.
				if note == nil {
					logger.Info("notification listener reconnected", "channel", channel)
					continue
				}
				select {
				case ids <- note.Extra:
				case <-ctx.Done():
					return
				}
			case <-time.After(90 * time.Second):
				if err := listener.Ping(); err != nil {
					logger.Warn("notification listener ping", "error", err)
				}
			}
		}
	}()
	return ids, nil
}
