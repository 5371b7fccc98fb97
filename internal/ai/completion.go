package ai

import (
	"context"
	"errors"
)

// Message roles understood by every completer.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyResponse is returned when the provider answered without any text.
var ErrEmptyResponse = errors.New("completion returned empty response")

// Message is one entry of the ordered prompt.
type Message struct {
	Role    string
	Content string
}

// Request is a single text-completion call.
type Request struct {
	// Model overrides the completer's default model when set.
	Model       string
	Messages    []Message
	Temperature float32
}

// Completer turns an ordered message list into a single text completion.
// Callers treat every error as recoverable.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// System is a shorthand for a system-role message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User is a shorthand for a user-role message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }
