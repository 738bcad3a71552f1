package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "embed"
)

//go:embed schema_postgres.sql
var postgresSchema string

//go:embed schema_sqlite.sql
var sqliteSchema string

// Migrate applies the schema for the given dialect. Every statement is
// idempotent, so it runs on each start.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	var schema string
	switch dialect {
	case Postgres:
		schema = postgresSchema
	case SQLite:
		schema = sqliteSchema
	default:
		return fmt.Errorf("migrate: unsupported dialect %q", dialect)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate %s: %w", dialect, err)
	}
	return nil
}
