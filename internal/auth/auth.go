// Package auth resolves a caller's bearer credential to the user id that owns
// their conversations.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
)

var (
	ErrMissingCredential = errors.New("authentication required")
	ErrInvalidCredential = errors.New("invalid session")
)

// Resolver maps a credential to a stable user id.
type Resolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// StaticTokens is a fixed token -> user id table, loaded from
// CHATBOT_API_TOKENS.
type StaticTokens map[string]string

func (s StaticTokens) Resolve(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrMissingCredential
	}
	var user string
	for known, id := range s {
		if subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1 {
			user = id
		}
	}
	if user == "" {
		return "", ErrInvalidCredential
	}
	return user, nil
}

// Anonymous accepts every caller. The token, if any, is used as the user id;
// callers without one are not bound to an owner.
type Anonymous struct{}

func (Anonymous) Resolve(_ context.Context, token string) (string, error) {
	return token, nil
}

// New returns StaticTokens when tokens are configured and Anonymous otherwise.
func New(tokens map[string]string) Resolver {
	if len(tokens) == 0 {
		return Anonymous{}
	}
	return StaticTokens(tokens)
}
