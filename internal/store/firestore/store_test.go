package firestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symptom-chatbot/pkg"
)

func TestDocConversion(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	c := &pkg.Conversation{
		ID:       "c1",
		OwnerID:  "ignored",
		Title:    "rash",
		State:    pkg.StateReady,
		Age:      "0-2 years (Infant)",
		Language: "telugu",
		Messages: []pkg.Message{
			{Role: pkg.RoleUser, Content: "rash on arm", Timestamp: now},
		},
		CreatedAt: now,
		UpdatedAt: now.Add(time.Minute),
	}

	doc := toDoc("alice", c)
	assert.Equal(t, "alice", doc.OwnerID)
	assert.Equal(t, "ready", doc.State)
	require.Len(t, doc.Messages, 1)

	back := fromDoc("c1", doc)
	want := *c
	want.OwnerID = "alice"
	assert.Equal(t, want, *back)
}

func TestEmptyConversationHasMessageSlice(t *testing.T) {
	back := fromDoc("x", toDoc("u", &pkg.Conversation{ID: "x"}))
	assert.NotNil(t, back.Messages)
	assert.NotNil(t, toDoc("u", &pkg.Conversation{}).Messages)
}

func TestNewStoreRequiresProject(t *testing.T) {
	_, err := NewStore(context.Background(), "")
	assert.Error(t, err)
}
