package core

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"symptom-chatbot/internal/config"
	"symptom-chatbot/internal/llm"
	"symptom-chatbot/pkg"
)

// chatHistoryLimit is how many stored messages are fetched to build a prompt.
const chatHistoryLimit = 10

// Options configures a ChatService.
type Options struct {
	AgeGroups       []string
	Languages       []config.Language
	DefaultLanguage string

	// Store is optional. Without one, conversations live only in memory.
	Store  Store
	Logger *slog.Logger
}

// ChatService orchestrates the symptom intake flow: setup of age and
// language, one model call per symptom turn and translation of the history on
// a language switch.
type ChatService struct {
	LLM llm.Provider

	conversations *Manager
	structurer    *Structurer
	store         Store
	logger        *slog.Logger

	// turns serialises every mutation of one conversation together with its
	// mirror write, so the store never sees snapshots out of order.
	turns keyedMutex

	ageGroups       []string
	languages       []config.Language
	defaultLanguage string
}

// LanguageSwitchResult is returned by SwitchLanguage. Messages is set only
// when the history was translated; Warning is set when translation failed
// and the original messages were kept.
type LanguageSwitchResult struct {
	Status      pkg.Status
	Messages    []pkg.TranslatedMessage
	Warning     string
	WarningCode Code
}

// NewChatService constructs a ChatService around the given model provider.
func NewChatService(provider llm.Provider, opts Options) *ChatService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.AgeGroups == nil {
		opts.AgeGroups = config.DefaultAgeGroups
	}
	if opts.Languages == nil {
		opts.Languages = config.DefaultLanguages
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = "english"
	}
	return &ChatService{
		LLM:             provider,
		conversations:   NewManager(opts.AgeGroups, opts.Languages),
		structurer:      NewStructurer(opts.Languages, opts.DefaultLanguage),
		store:           opts.Store,
		logger:          opts.Logger,
		ageGroups:       opts.AgeGroups,
		languages:       opts.Languages,
		defaultLanguage: opts.DefaultLanguage,
	}
}

// Conversations exposes the underlying state machine.
func (s *ChatService) Conversations() *Manager { return s.conversations }

// AgeGroups returns the accepted age-group labels.
func (s *ChatService) AgeGroups() []string {
	return append([]string(nil), s.ageGroups...)
}

// Languages returns the supported languages.
func (s *ChatService) Languages() []config.Language {
	return append([]config.Language(nil), s.languages...)
}

// DefaultLanguage is used for prompts and disclaimers until a language is
// chosen.
func (s *ChatService) DefaultLanguage() string { return s.defaultLanguage }

// CreateConversation starts a conversation for ownerID. An empty owner gets a
// generated id, returned as the conversation's OwnerID.
func (s *ChatService) CreateConversation(ctx context.Context, ownerID string) (pkg.Conversation, error) {
	if ownerID == "" {
		ownerID = uuid.NewString()
	}
	id := s.conversations.Create(ownerID)
	unlock := s.turns.lock(id)
	s.save(ctx, id)
	unlock()

	conv, _ := s.conversations.Snapshot(id)
	s.logger.InfoContext(ctx, "conversation created", "conversation_id", id, "owner_id", ownerID)
	return conv, nil
}

// SetAge records the age group during setup.
func (s *ChatService) SetAge(ctx context.Context, ownerID, id, age string) (pkg.Status, error) {
	age = strings.TrimSpace(age)
	if age == "" {
		return pkg.Status{}, validationError("age", "Age is required")
	}

	unlock := s.turns.lock(id)
	defer unlock()

	if _, err := s.lookup(ctx, ownerID, id); err != nil {
		return pkg.Status{}, err
	}
	if !s.conversations.SetAge(id, age) {
		return pkg.Status{}, validationError("age", "Invalid age group")
	}
	s.save(ctx, id)
	return s.status(id), nil
}

// SetLanguage records the language during setup. It never translates; use
// SwitchLanguage once messages exist.
func (s *ChatService) SetLanguage(ctx context.Context, ownerID, id, language string) (pkg.Status, error) {
	language = strings.TrimSpace(language)
	if language == "" {
		return pkg.Status{}, validationError("language", "Language is required")
	}

	unlock := s.turns.lock(id)
	defer unlock()

	if _, err := s.lookup(ctx, ownerID, id); err != nil {
		return pkg.Status{}, err
	}
	if !s.conversations.SetLanguage(id, language) {
		return pkg.Status{}, validationError("language", "Invalid language")
	}
	s.save(ctx, id)
	return s.status(id), nil
}

// Chat runs one symptom turn. The user message is kept even if generation
// fails.
func (s *ChatService) Chat(ctx context.Context, ownerID, id, text string) (*pkg.StructuredResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationError("message", "Message is required")
	}

	unlock := s.turns.lock(id)
	defer unlock()

	if _, err := s.lookup(ctx, ownerID, id); err != nil {
		return nil, err
	}
	if ok, reason := s.conversations.CanProcessSymptoms(id); !ok {
		conv, _ := s.conversations.Snapshot(id)
		field := "language"
		if conv.Age == "" {
			field = "age"
		}
		return nil, &Error{Code: CodePrecondition, Field: field, Message: reason}
	}

	s.conversations.AddMessage(id, pkg.RoleUser, text)
	conv, _ := s.conversations.Snapshot(id)
	history := s.conversations.History(id, chatHistoryLimit)

	raw, err := s.generate(ctx, BuildSymptomPrompt(conv.Age, text, history), s.structurer.SystemPrompt(conv.Language))
	if err != nil {
		s.save(ctx, id)
		s.logger.ErrorContext(ctx, "generating response", "conversation_id", id, "error", err)
		return nil, generationFailure(err)
	}

	resp := ParseSections(raw)
	resp.Disclaimer = s.structurer.Disclaimer(conv.Language)
	s.conversations.AddMessage(id, pkg.RoleAssistant, Render(resp))
	s.save(ctx, id)
	return &resp, nil
}

// Status returns the conversation's current stage.
func (s *ChatService) Status(ctx context.Context, ownerID, id string) (pkg.Status, error) {
	if _, err := s.lookup(ctx, ownerID, id); err != nil {
		return pkg.Status{}, err
	}
	return s.status(id), nil
}

// History returns up to limit recent messages, or all of them when limit is
// not positive.
func (s *ChatService) History(ctx context.Context, ownerID, id string, limit int) ([]pkg.Message, error) {
	if _, err := s.lookup(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return s.conversations.History(id, limit), nil
}

// SwitchLanguage changes the language and translates the existing history.
// A failed translation leaves the messages untouched and is reported as a
// warning; the language change itself still succeeds.
func (s *ChatService) SwitchLanguage(ctx context.Context, ownerID, id, language string) (*LanguageSwitchResult, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		return nil, validationError("language", "Language is required")
	}

	unlock := s.turns.lock(id)
	defer unlock()

	if _, err := s.lookup(ctx, ownerID, id); err != nil {
		return nil, err
	}
	if !s.conversations.SetLanguage(id, language) {
		return nil, validationError("language", "Invalid language")
	}
	s.save(ctx, id)

	result := &LanguageSwitchResult{}
	if len(s.conversations.History(id, 0)) > 0 {
		if s.conversations.TranslateConversation(id, language, s.translator(ctx, id)) {
			s.save(ctx, id)
			result.Messages = s.translatedMessages(id, language)
		} else {
			result.Warning = "Language changed, but the conversation could not be translated. Original messages were kept."
			result.WarningCode = CodeTranslationWarning
		}
	}
	result.Status = s.status(id)
	return result, nil
}

// ListConversations returns ownerID's conversations, most recently updated
// first.
func (s *ChatService) ListConversations(ctx context.Context, ownerID string) ([]pkg.ConversationPreview, error) {
	var convs []pkg.Conversation
	if s.store != nil {
		stored, err := s.store.ListConversations(ctx, ownerID)
		if err != nil {
			s.logger.WarnContext(ctx, "listing stored conversations", "owner_id", ownerID, "error", err)
		}
		convs = stored
	}
	// Memory wins over whatever the mirror returned for the same id.
	byID := make(map[string]pkg.Conversation, len(convs))
	for _, c := range convs {
		byID[c.ID] = c
	}
	for _, c := range s.conversations.ListByOwner(ownerID) {
		byID[c.ID] = c
	}

	out := make([]pkg.ConversationPreview, 0, len(byID))
	for _, c := range byID {
		out = append(out, pkg.ConversationPreview{
			ID:           c.ID,
			Title:        c.Title,
			State:        c.State,
			Age:          c.Age,
			Language:     c.Language,
			MessageCount: len(c.Messages),
			CreatedAt:    c.CreatedAt,
			UpdatedAt:    c.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Cleanup drops in-memory conversations idle for longer than maxAge. Mirrored
// copies are kept so they can be resumed later.
func (s *ChatService) Cleanup(ctx context.Context, maxAge time.Duration) int {
	removed := s.conversations.Cleanup(maxAge)
	s.turns.forget(removed...)
	if len(removed) > 0 {
		s.logger.InfoContext(ctx, "cleaned up conversations", "count", len(removed))
	}
	return len(removed)
}

// lookup finds a conversation, rehydrating it from the store when memory does
// not hold it. Conversations owned by someone else are reported as not found.
func (s *ChatService) lookup(ctx context.Context, ownerID, id string) (pkg.Conversation, error) {
	if id == "" {
		return pkg.Conversation{}, validationError("conversation_id", "Conversation id is required")
	}
	conv, ok := s.conversations.Snapshot(id)
	if !ok && s.store != nil {
		stored, err := s.store.LoadConversation(ctx, id)
		switch {
		case err == nil && stored != nil:
			s.conversations.Restore(*stored)
			conv, ok = s.conversations.Snapshot(id)
		case err != nil && !errors.Is(err, ErrConversationNotFound):
			s.logger.WarnContext(ctx, "loading stored conversation", "conversation_id", id, "error", err)
		}
	}
	if !ok {
		return pkg.Conversation{}, notFound(id)
	}
	if ownerID != "" && conv.OwnerID != ownerID {
		return pkg.Conversation{}, notFound(id)
	}
	return conv, nil
}

func (s *ChatService) status(id string) pkg.Status {
	conv, _ := s.conversations.Snapshot(id)
	return pkg.Status{
		ConversationID: conv.ID,
		State:          conv.State,
		Age:            conv.Age,
		Language:       conv.Language,
		MessageCount:   len(conv.Messages),
	}
}

// save mirrors the conversation. Failures are logged and otherwise ignored.
func (s *ChatService) save(ctx context.Context, id string) {
	if s.store == nil {
		return
	}
	conv, ok := s.conversations.Snapshot(id)
	if !ok {
		return
	}
	if err := s.store.SaveConversation(ctx, conv.OwnerID, &conv); err != nil {
		s.logger.WarnContext(ctx, "mirroring conversation", "conversation_id", id, "error", err)
	}
}

func (s *ChatService) generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	if s.LLM == nil || !llm.Ready(ctx, s.LLM) {
		return "", llm.ErrProviderUnavailable
	}
	return s.LLM.Generate(ctx, prompt, systemPrompt)
}

func (s *ChatService) translator(ctx context.Context, id string) Translator {
	return func(messages []pkg.Message, targetLanguage string) ([]string, error) {
		prompt, system := s.structurer.TranslationRequest(messages, targetLanguage)
		raw, err := s.generate(ctx, prompt, system)
		if err != nil {
			s.logger.WarnContext(ctx, "translating conversation", "conversation_id", id, "error", err)
			return nil, err
		}
		originals := make([]string, len(messages))
		for i, m := range messages {
			originals[i] = m.Content
		}
		out, err := parseTranslationReply(raw, originals)
		if err != nil {
			s.logger.WarnContext(ctx, "parsing translation", "conversation_id", id, "error", err)
			return nil, err
		}
		return out, nil
	}
}

// translatedMessages re-splits assistant turns into sections so the caller
// can render them the same way as a fresh reply.
func (s *ChatService) translatedMessages(id, language string) []pkg.TranslatedMessage {
	msgs := s.conversations.History(id, 0)
	out := make([]pkg.TranslatedMessage, len(msgs))
	for i, m := range msgs {
		out[i] = pkg.TranslatedMessage{Role: m.Role, Content: m.Content, Timestamp: m.Timestamp}
		if m.Role == pkg.RoleAssistant {
			resp := ParseSections(m.Content)
			resp.Disclaimer = s.structurer.Disclaimer(language)
			out[i].Content = &resp
		}
	}
	return out
}
