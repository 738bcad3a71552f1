package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symptom-chatbot/internal/config"
	"symptom-chatbot/internal/db"
	"symptom-chatbot/internal/store/bolt"
	"symptom-chatbot/internal/store/memory"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := openStore(ctx, &config.Config{Store: config.StoreMemory})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)
	assert.NoError(t, closeFn())

	s, closeFn, err = openStore(ctx, &config.Config{Store: config.StoreSQLite, DatabaseURL: ":memory:"})
	require.NoError(t, err)
	assert.IsType(t, &db.Repository{}, s)
	assert.NoError(t, closeFn())

	s, closeFn, err = openStore(ctx, &config.Config{Store: config.StoreBolt, BoltPath: filepath.Join(t.TempDir(), "c.bolt")})
	require.NoError(t, err)
	assert.IsType(t, &bolt.Store{}, s)
	assert.NoError(t, closeFn())

	_, _, err = openStore(ctx, &config.Config{Store: "cassandra"})
	assert.Error(t, err)

	_, _, err = openStore(ctx, &config.Config{Store: config.StorePostgres})
	assert.ErrorContains(t, err, "DATABASE_URL")

	_, _, err = openStore(ctx, &config.Config{Store: config.StoreFirestore})
	assert.Error(t, err)
}

func TestSQLTarget(t *testing.T) {
	dialect, dsn, err := sqlTarget(&config.Config{Store: config.StoreSQLite})
	require.NoError(t, err)
	assert.Equal(t, db.SQLite, dialect)
	assert.Contains(t, dsn, "chatbot.db")

	dialect, dsn, err = sqlTarget(&config.Config{Store: config.StorePostgres, DatabaseURL: "postgres://x"})
	require.NoError(t, err)
	assert.Equal(t, db.Postgres, dialect)
	assert.Equal(t, "postgres://x", dsn)

	_, _, err = sqlTarget(&config.Config{Store: config.StoreMemory})
	assert.Error(t, err)
}

func TestProvidersCommand(t *testing.T) {
	t.Setenv("CHATBOT_CONFIG_FILE", "")
	t.Setenv("CHATBOT_LOG_FILE", "")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GEMINI_API_KEY", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"providers"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "* openai     available")
	assert.Contains(t, out.String(), "  gemini     not configured")
	assert.Contains(t, out.String(), "  anthropic  not configured")
}
