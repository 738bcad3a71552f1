package core

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"symptom-chatbot/internal/config"
	"symptom-chatbot/pkg"
)

const (
	defaultTitle  = "New Conversation"
	maxTitleRunes = 48
)

// Translator returns the translated content of every message, in order.
type Translator func(messages []pkg.Message, targetLanguage string) ([]string, error)

type entry struct {
	mu   sync.Mutex
	conv pkg.Conversation
	// version changes whenever message contents change.
	version uint64
}

// Manager owns the per-conversation state and drives the setup flow. The map
// lock only guards membership; every operation on a conversation runs under
// that conversation's own lock.
type Manager struct {
	mu            sync.RWMutex
	conversations map[string]*entry

	ageGroups map[string]bool
	languages map[string]bool

	now   func() time.Time
	newID func() string
}

// NewManager returns a Manager accepting the given closed sets.
func NewManager(ageGroups []string, languages []config.Language) *Manager {
	m := &Manager{
		conversations: make(map[string]*entry),
		ageGroups:     make(map[string]bool, len(ageGroups)),
		languages:     make(map[string]bool, len(languages)),
		now:           time.Now,
		newID:         uuid.NewString,
	}
	for _, a := range ageGroups {
		m.ageGroups[a] = true
	}
	for _, l := range languages {
		m.languages[strings.ToLower(l.Code)] = true
	}
	return m
}

func (m *Manager) get(id string) (*entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.conversations[id]
	return e, ok
}

// Create allocates a fresh conversation owned by ownerID, generating an owner
// id when none is given.
func (m *Manager) Create(ownerID string) string {
	if ownerID == "" {
		ownerID = m.newID()
	}
	now := m.now()
	e := &entry{conv: pkg.Conversation{
		ID:        m.newID(),
		OwnerID:   ownerID,
		Title:     defaultTitle,
		State:     pkg.StateInitial,
		Messages:  []pkg.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}}

	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		if _, taken := m.conversations[e.conv.ID]; !taken {
			break
		}
		e.conv.ID = m.newID()
	}
	m.conversations[e.conv.ID] = e
	return e.conv.ID
}

// Restore inserts a snapshot loaded from persistence. An id already held in
// memory is left alone, since memory is the source of truth.
func (m *Manager) Restore(c pkg.Conversation) bool {
	c.Messages = append([]pkg.Message{}, c.Messages...)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[c.ID]; ok {
		return false
	}
	m.conversations[c.ID] = &entry{conv: c}
	return true
}

// Snapshot returns a copy of the conversation.
func (m *Manager) Snapshot(id string) (pkg.Conversation, bool) {
	e, ok := m.get(id)
	if !ok {
		return pkg.Conversation{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.conv
	c.Messages = append([]pkg.Message{}, e.conv.Messages...)
	return c, true
}

// advance moves a conversation still in setup to the stage matching the
// values it holds. Conversations past setup never move back.
func advance(c *pkg.Conversation) {
	switch c.State {
	case pkg.StateInitial, pkg.StateAwaitingAge, pkg.StateAwaitingLanguage:
	default:
		return
	}
	switch {
	case c.Age != "" && c.Language != "":
		c.State = pkg.StateReady
	case c.Age != "":
		c.State = pkg.StateAwaitingLanguage
	default:
		c.State = pkg.StateAwaitingAge
	}
}

// SetAge stores an age group from the closed set. It returns false without
// changing anything for an unknown id or age.
func (m *Manager) SetAge(id, age string) bool {
	if !m.ageGroups[age] {
		return false
	}
	e, ok := m.get(id)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conv.Age = age
	e.conv.UpdatedAt = m.now()
	advance(&e.conv)
	return true
}

// SetLanguage stores a supported language code, matched case-insensitively.
func (m *Manager) SetLanguage(id, language string) bool {
	language = strings.ToLower(strings.TrimSpace(language))
	if !m.languages[language] {
		return false
	}
	e, ok := m.get(id)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conv.Language = language
	e.conv.UpdatedAt = m.now()
	advance(&e.conv)
	return true
}

// CanProcessSymptoms reports whether both age and language are set; the
// reason names what is missing.
func (m *Manager) CanProcessSymptoms(id string) (bool, string) {
	e, ok := m.get(id)
	if !ok {
		return false, "Conversation not found"
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conv.Age == "" {
		return false, "Age selection is required before processing symptoms"
	}
	if e.conv.Language == "" {
		return false, "Language selection is required"
	}
	return true, "Ready"
}

// AddMessage appends a message. Unknown ids are ignored.
func (m *Manager) AddMessage(id string, role pkg.MessageRole, content string) {
	e, ok := m.get(id)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	now := m.now()
	e.conv.Messages = append(e.conv.Messages, pkg.Message{Role: role, Content: content, Timestamp: now})
	e.conv.UpdatedAt = now
	e.version++
	if role == pkg.RoleUser && e.conv.Title == defaultTitle {
		e.conv.Title = titleFrom(content)
	}
	if e.conv.State == pkg.StateReady {
		e.conv.State = pkg.StateInConversation
	}
}

// History returns the last limit messages in their original order, or all of
// them when limit is zero or negative.
func (m *Manager) History(id string, limit int) []pkg.Message {
	e, ok := m.get(id)
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	msgs := e.conv.Messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]pkg.Message{}, msgs...)
}

// TranslateConversation replaces every message's content with the output of
// translate. The translator runs without the conversation lock held. Nothing
// changes if it fails, returns the wrong number of contents, or the messages
// changed in the meantime.
func (m *Manager) TranslateConversation(id, targetLanguage string, translate Translator) bool {
	e, ok := m.get(id)
	if !ok {
		return false
	}

	e.mu.Lock()
	msgs := append([]pkg.Message{}, e.conv.Messages...)
	version := e.version
	e.mu.Unlock()

	if len(msgs) == 0 {
		return true
	}

	translated, err := translate(msgs, targetLanguage)
	if err != nil || len(translated) != len(msgs) {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.version != version {
		return false
	}
	for i := range e.conv.Messages {
		e.conv.Messages[i].Content = translated[i]
	}
	e.conv.UpdatedAt = m.now()
	e.version++
	return true
}

// Cleanup removes conversations not updated within maxAge and returns their ids.
func (m *Manager) Cleanup(maxAge time.Duration) []string {
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []string
	for id, e := range m.conversations {
		e.mu.Lock()
		stale := e.conv.UpdatedAt.Before(cutoff)
		e.mu.Unlock()
		if stale {
			delete(m.conversations, id)
			removed = append(removed, id)
		}
	}
	return removed
}

// ListByOwner returns copies of every conversation owned by ownerID.
func (m *Manager) ListByOwner(ownerID string) []pkg.Conversation {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.conversations))
	for _, e := range m.conversations {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	var out []pkg.Conversation
	for _, e := range entries {
		e.mu.Lock()
		if e.conv.OwnerID == ownerID {
			c := e.conv
			c.Messages = append([]pkg.Message{}, e.conv.Messages...)
			out = append(out, c)
		}
		e.mu.Unlock()
	}
	return out
}

// Len returns the number of conversations held in memory.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conversations)
}

func titleFrom(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if content == "" {
		return defaultTitle
	}
	runes := []rune(content)
	if len(runes) <= maxTitleRunes {
		return content
	}
	return strings.TrimSpace(string(runes[:maxTitleRunes])) + "…"
}
