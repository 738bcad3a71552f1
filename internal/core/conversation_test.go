package core

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symptom-chatbot/internal/config"
	"symptom-chatbot/pkg"
)

const adult = "18-64 years (Adult)"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestManager() (*Manager, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := NewManager(config.DefaultAgeGroups, config.DefaultLanguages)
	m.now = clock.now
	return m, clock
}

func mustSnapshot(t *testing.T, m *Manager, id string) pkg.Conversation {
	t.Helper()
	c, ok := m.Snapshot(id)
	require.True(t, ok, "conversation %s missing", id)
	return c
}

func TestCreate(t *testing.T) {
	m, clock := newTestManager()
	id := m.Create("user-1")

	c := mustSnapshot(t, m, id)
	assert.Equal(t, pkg.StateInitial, c.State)
	assert.Equal(t, "user-1", c.OwnerID)
	assert.Empty(t, c.Age)
	assert.Empty(t, c.Language)
	assert.Empty(t, c.Messages)
	assert.Equal(t, clock.now(), c.CreatedAt)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)

	other := m.Create("")
	assert.NotEqual(t, id, other)
	assert.NotEmpty(t, mustSnapshot(t, m, other).OwnerID)
	assert.Equal(t, 2, m.Len())
}

func TestSetupAgeThenLanguage(t *testing.T) {
	m, _ := newTestManager()
	id := m.Create("u")

	require.True(t, m.SetAge(id, adult))
	assert.Equal(t, pkg.StateAwaitingLanguage, mustSnapshot(t, m, id).State)

	require.True(t, m.SetLanguage(id, "Hindi"))
	c := mustSnapshot(t, m, id)
	assert.Equal(t, pkg.StateReady, c.State)
	assert.Equal(t, "hindi", c.Language)
}

func TestSetupLanguageThenAge(t *testing.T) {
	m, _ := newTestManager()
	id := m.Create("u")

	require.True(t, m.SetLanguage(id, "english"))
	assert.Equal(t, pkg.StateAwaitingAge, mustSnapshot(t, m, id).State)

	require.True(t, m.SetAge(id, adult))
	assert.Equal(t, pkg.StateReady, mustSnapshot(t, m, id).State)
}

func TestSetAgeRejectsUnknownValues(t *testing.T) {
	m, clock := newTestManager()
	id := m.Create("u")
	before := mustSnapshot(t, m, id)
	clock.advance(time.Minute)

	assert.False(t, m.SetAge(id, "adult"))
	assert.False(t, m.SetAge("missing", adult))
	assert.False(t, m.SetLanguage(id, "klingon"))

	assert.Equal(t, before, mustSnapshot(t, m, id))
}

func TestSetLanguageIsIdempotent(t *testing.T) {
	m, clock := newTestManager()
	id := m.Create("u")
	require.True(t, m.SetAge(id, adult))
	require.True(t, m.SetLanguage(id, "tamil"))
	first := mustSnapshot(t, m, id)

	clock.advance(time.Minute)
	require.True(t, m.SetLanguage(id, "TAMIL"))
	second := mustSnapshot(t, m, id)

	assert.Equal(t, first.State, second.State)
	assert.Equal(t, "tamil", second.Language)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestCanProcessSymptoms(t *testing.T) {
	m, _ := newTestManager()
	id := m.Create("u")

	ok, reason := m.CanProcessSymptoms(id)
	assert.False(t, ok)
	assert.Contains(t, reason, "Age")

	m.SetAge(id, adult)
	ok, reason = m.CanProcessSymptoms(id)
	assert.False(t, ok)
	assert.Contains(t, reason, "Language")

	m.SetLanguage(id, "english")
	ok, _ = m.CanProcessSymptoms(id)
	assert.True(t, ok)

	ok, _ = m.CanProcessSymptoms("missing")
	assert.False(t, ok)
}

func TestAddMessageStartsConversation(t *testing.T) {
	m, clock := newTestManager()
	id := m.Create("u")
	m.SetAge(id, adult)
	m.SetLanguage(id, "english")

	clock.advance(time.Second)
	m.AddMessage(id, pkg.RoleUser, "  I have had a   headache since yesterday evening and it keeps getting worse  ")
	c := mustSnapshot(t, m, id)
	assert.Equal(t, pkg.StateInConversation, c.State)
	require.Len(t, c.Messages, 1)
	assert.Equal(t, clock.now(), c.Messages[0].Timestamp)
	assert.Equal(t, clock.now(), c.UpdatedAt)
	assert.Equal(t, "I have had a headache since yesterday evening an…", c.Title)

	m.AddMessage(id, pkg.RoleAssistant, "Summary: headache")
	m.AddMessage(id, pkg.RoleUser, "Also nausea")
	c = mustSnapshot(t, m, id)
	assert.Equal(t, pkg.StateInConversation, c.State)
	assert.Equal(t, "I have had a headache since yesterday evening an…", c.Title)
	assert.Len(t, c.Messages, 3)

	m.AddMessage("missing", pkg.RoleUser, "ignored")
}

func TestLaterSetupCallsDoNotRegress(t *testing.T) {
	m, _ := newTestManager()
	id := m.Create("u")
	m.SetAge(id, adult)
	m.SetLanguage(id, "english")
	m.AddMessage(id, pkg.RoleUser, "cough")

	require.True(t, m.SetAge(id, "65+ years (Senior)"))
	require.True(t, m.SetLanguage(id, "urdu"))
	c := mustSnapshot(t, m, id)
	assert.Equal(t, pkg.StateInConversation, c.State)
	assert.Equal(t, "65+ years (Senior)", c.Age)
	assert.Equal(t, "urdu", c.Language)
}

func TestHistory(t *testing.T) {
	m, _ := newTestManager()
	id := m.Create("u")
	for i := 1; i <= 5; i++ {
		m.AddMessage(id, pkg.RoleUser, fmt.Sprintf("m%d", i))
	}

	last := m.History(id, 2)
	require.Len(t, last, 2)
	assert.Equal(t, "m4", last[0].Content)
	assert.Equal(t, "m5", last[1].Content)

	assert.Len(t, m.History(id, 0), 5)
	assert.Len(t, m.History(id, 50), 5)
	assert.Nil(t, m.History("missing", 2))

	last[0].Content = "changed"
	assert.Equal(t, "m4", m.History(id, 2)[0].Content)
}

func TestTranslateConversation(t *testing.T) {
	m, clock := newTestManager()
	id := m.Create("u")
	m.AddMessage(id, pkg.RoleUser, "fever")
	m.AddMessage(id, pkg.RoleAssistant, "Summary: fever")
	clock.advance(time.Minute)

	ok := m.TranslateConversation(id, "hindi", func(msgs []pkg.Message, lang string) ([]string, error) {
		assert.Equal(t, "hindi", lang)
		out := make([]string, len(msgs))
		for i, msg := range msgs {
			out[i] = "hi:" + msg.Content
		}
		return out, nil
	})
	require.True(t, ok)

	c := mustSnapshot(t, m, id)
	assert.Equal(t, "hi:fever", c.Messages[0].Content)
	assert.Equal(t, "hi:Summary: fever", c.Messages[1].Content)
	assert.Equal(t, pkg.RoleAssistant, c.Messages[1].Role)
	assert.Equal(t, clock.now(), c.UpdatedAt)
}

func TestTranslateConversationFailures(t *testing.T) {
	m, _ := newTestManager()
	id := m.Create("u")
	m.AddMessage(id, pkg.RoleUser, "one")
	m.AddMessage(id, pkg.RoleAssistant, "two")
	before := mustSnapshot(t, m, id)

	tests := []struct {
		name      string
		translate Translator
	}{
		{"wrong length", func([]pkg.Message, string) ([]string, error) { return []string{"uno"}, nil }},
		{"error", func([]pkg.Message, string) ([]string, error) { return nil, errors.New("boom") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, m.TranslateConversation(id, "hindi", tt.translate))
			assert.Equal(t, before, mustSnapshot(t, m, id))
		})
	}

	assert.False(t, m.TranslateConversation("missing", "hindi", nil))
}

func TestTranslateConversationDetectsConcurrentAppend(t *testing.T) {
	m, _ := newTestManager()
	id := m.Create("u")
	m.AddMessage(id, pkg.RoleUser, "one")

	ok := m.TranslateConversation(id, "hindi", func(msgs []pkg.Message, _ string) ([]string, error) {
		m.AddMessage(id, pkg.RoleUser, "two")
		return []string{"uno"}, nil
	})
	assert.False(t, ok)
	assert.Equal(t, "one", m.History(id, 0)[0].Content)
}

func TestTranslateEmptyConversation(t *testing.T) {
	m, _ := newTestManager()
	id := m.Create("u")
	called := false
	assert.True(t, m.TranslateConversation(id, "hindi", func([]pkg.Message, string) ([]string, error) {
		called = true
		return nil, nil
	}))
	assert.False(t, called)
}

func TestCleanup(t *testing.T) {
	m, clock := newTestManager()
	old := m.Create("u")
	clock.advance(3 * time.Hour)
	fresh := m.Create("u")
	clock.advance(time.Hour)

	removed := m.Cleanup(2 * time.Hour)
	assert.Equal(t, []string{old}, removed)
	_, ok := m.Snapshot(old)
	assert.False(t, ok)
	_, ok = m.Snapshot(fresh)
	assert.True(t, ok)
	assert.Empty(t, m.Cleanup(2*time.Hour))
}

func TestRestore(t *testing.T) {
	m, _ := newTestManager()
	snap := pkg.Conversation{
		ID:       "stored",
		OwnerID:  "u",
		State:    pkg.StateInConversation,
		Age:      adult,
		Language: "english",
		Messages: []pkg.Message{{Role: pkg.RoleUser, Content: "cough"}},
	}
	require.True(t, m.Restore(snap))
	assert.False(t, m.Restore(pkg.Conversation{ID: "stored"}))

	snap.Messages[0].Content = "mutated"
	assert.Equal(t, "cough", m.History("stored", 0)[0].Content)

	m.AddMessage("stored", pkg.RoleUser, "fever")
	assert.Len(t, m.History("stored", 0), 2)
	assert.Len(t, m.ListByOwner("u"), 1)
	assert.Empty(t, m.ListByOwner("someone-else"))
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	m, _ := newTestManager()
	id := m.Create("u")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.AddMessage(id, pkg.RoleUser, fmt.Sprintf("msg %d", i))
		}(i)
	}
	wg.Wait()
	assert.Len(t, m.History(id, 0), 50)
}
