package cli

import (
	"context"
	"fmt"

	"symptom-chatbot/internal/config"
	"symptom-chatbot/internal/core"
	"symptom-chatbot/internal/db"
	"symptom-chatbot/internal/store/bolt"
	"symptom-chatbot/internal/store/firestore"
	"symptom-chatbot/internal/store/memory"
)

// openStore builds the configured persistence mirror. The returned func
// releases it.
func openStore(ctx context.Context, cfg *config.Config) (core.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case config.StoreMemory, "":
		return memory.NewStore(), noop, nil

	case config.StorePostgres, config.StoreSQLite:
		dialect, dsn, err := sqlTarget(cfg)
		if err != nil {
			return nil, nil, err
		}
		conn, err := db.Open(ctx, dialect, dsn)
		if err != nil {
			return nil, nil, err
		}
		repo := db.NewRepository(conn)
		if dialect == db.Postgres && cfg.NotifyChannel != "" {
			repo.Notifier = db.NewNotifier(conn, cfg.NotifyChannel)
		}
		return repo, conn.Close, nil

	case config.StoreFirestore:
		s, err := firestore.NewStore(ctx, cfg.FirestoreProj)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case config.StoreBolt:
		s, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown CHATBOT_STORE %q", cfg.Store)
	}
}

// sqlTarget returns the dialect and DSN of a SQL-backed store.
func sqlTarget(cfg *config.Config) (db.Dialect, string, error) {
	switch cfg.Store {
	case config.StorePostgres:
		if cfg.DatabaseURL == "" {
			return "", "", fmt.Errorf("DATABASE_URL must be set for the postgres store")
		}
		return db.Postgres, cfg.DatabaseURL, nil
	case config.StoreSQLite:
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "file:chatbot.db?_busy_timeout=5000"
		}
		return db.SQLite, dsn, nil
	default:
		return "", "", fmt.Errorf("CHATBOT_STORE %q is not a SQL store", cfg.Store)
	}
}
