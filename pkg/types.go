package pkg

import "time"

// State is the stage of the setup/chat flow a conversation currently occupies.
type State string

const (
	StateInitial          State = "initial"
	StateAwaitingAge      State = "awaiting_age"
	StateAwaitingLanguage State = "awaiting_language"
	StateReady            State = "ready"
	StateInConversation   State = "in_conversation"
)

// MessageRole describes who authored a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is a single entry of a conversation history. Content is plain text;
// assistant turns hold the flattened rendering of a StructuredResponse.
type Message struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// Conversation is a point-in-time copy of a conversation. It is what the
// persistence mirror stores and what status/listing endpoints return.
type Conversation struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	State     State     `json:"state"`
	Age       string    `json:"age,omitempty"`
	Language  string    `json:"language,omitempty"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StructuredResponse is the four-section decomposition of a model answer.
// Disclaimer is selected by language, never generated by the model.
type StructuredResponse struct {
	Summary          string `json:"summary"`
	HomeCare         string `json:"home_care"`
	MedicalAttention string `json:"medical_attention"`
	PossibleCauses   string `json:"possible_causes"`
	Disclaimer       string `json:"disclaimer"`
}

// Status summarises a conversation for the status endpoint.
type Status struct {
	ConversationID string `json:"conversation_id"`
	State          State  `json:"state"`
	Age            string `json:"age,omitempty"`
	Language       string `json:"language,omitempty"`
	MessageCount   int    `json:"message_count"`
}

// TranslatedMessage is one entry of a language switch result. Content is a
// string for user turns and a *StructuredResponse for assistant turns.
type TranslatedMessage struct {
	Role      MessageRole `json:"role"`
	Content   any         `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// ConversationPreview is returned when listing a user's conversations.
type ConversationPreview struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	State        State     `json:"state"`
	Age          string    `json:"age,omitempty"`
	Language     string    `json:"language,omitempty"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AgeRequest sets the age group of a conversation.
type AgeRequest struct {
	Age string `json:"age"`
}

// LanguageRequest selects or switches the conversation language.
type LanguageRequest struct {
	Language string `json:"language"`
}

// ChatRequest carries the user's symptom description.
type ChatRequest struct {
	Message string `json:"message"`
}

// SwitchProviderRequest selects the active model backend.
type SwitchProviderRequest struct {
	Provider string `json:"provider"`
}
