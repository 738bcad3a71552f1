package core

import (
	"errors"
	"fmt"

	"symptom-chatbot/internal/llm"
)

// Code is a machine-checkable failure reason returned to the boundary layer.
type Code string

const (
	CodeValidation          Code = "validation_error"
	CodeNotFound            Code = "not_found"
	CodePrecondition        Code = "precondition_failed"
	CodeProviderUnavailable Code = "provider_unavailable"
	CodeGeneration          Code = "generation_failed"

	// CodeTranslationWarning never appears on an Error; it flags a language
	// switch whose translation failed.
	CodeTranslationWarning Code = "translation_warning"
)

// Error is returned by every ChatService operation that fails.
type Error struct {
	Code    Code
	Field   string // offending or missing field, when there is one
	Message string // safe to show to the caller
	Err     error  // internal detail, never shown to the caller
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrValidation          = &Error{Code: CodeValidation}
	ErrNotFound            = &Error{Code: CodeNotFound}
	ErrPrecondition        = &Error{Code: CodePrecondition}
	ErrProviderUnavailable = &Error{Code: CodeProviderUnavailable}
	ErrGeneration          = &Error{Code: CodeGeneration}
)

// CodeOf returns the code of err, or "" when err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func validationError(field, msg string) *Error {
	return &Error{Code: CodeValidation, Field: field, Message: msg}
}

func notFound(id string) *Error {
	return &Error{Code: CodeNotFound, Field: "conversation_id", Message: "Conversation not found", Err: fmt.Errorf("conversation %s", id)}
}

// generationFailure hides the provider detail behind a generic message.
func generationFailure(err error) *Error {
	if errors.Is(err, llm.ErrProviderUnavailable) {
		return &Error{Code: CodeProviderUnavailable, Message: "Medical response generator is not available. Please check LLM configuration.", Err: err}
	}
	return &Error{Code: CodeGeneration, Message: "Failed to generate response", Err: err}
}
